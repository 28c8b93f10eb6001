package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// StripCodeFences removes a surrounding markdown code fence (```json ... ```)
// that chat models like to wrap JSON in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// GenerateSchema creates a JSON Schema from the given Go type.
// It uses reflection to inspect the type structure and generates
// a schema suitable for use with AI structured output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It first tries standard JSON unmarshaling, then handles double-encoded JSON strings,
// and finally attempts to repair malformed JSON before parsing.
//
// Example:
//
//	var result MyStruct
//	UnmarshalFlexible(`{"name": "test"}`, &result)           // standard JSON
//	UnmarshalFlexible(`"{\"name\": \"test\"}"`, &result)     // double-encoded
//	UnmarshalFlexible(`{name: "test"}`, &result)             // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = StripCodeFences(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}

// ArrayExtraction is the outcome of ExtractFirstJSONArray. JSON is only
// meaningful when OK is true; Repaired reports that jsonrepair had to fix
// the fragment before it parsed.
type ArrayExtraction struct {
	JSON     string
	OK       bool
	Repaired bool
}

// ExtractFirstJSONArray finds the first well-formed JSON array embedded in
// free text, as returned by models that ignore formatting instructions.
// Balanced candidates are tried in order of their opening bracket. When none
// parses, the first candidate, or the unclosed one that ends the text, is
// handed to jsonrepair.
func ExtractFirstJSONArray(text string) ArrayExtraction {
	text = StripCodeFences(text)

	first := -1
	for start := strings.IndexByte(text, '['); start >= 0; {
		if first < 0 {
			first = start
		}
		end := matchingBracket(text, start)
		if end < 0 {
			// everything after an unclosed bracket belongs to it
			first = start
			break
		}
		if candidate := text[start : end+1]; isJSONArray(candidate) {
			return ArrayExtraction{JSON: candidate, OK: true}
		}
		next := strings.IndexByte(text[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	if first < 0 {
		return ArrayExtraction{}
	}

	fragment := text[first:]
	if end := matchingBracket(text, first); end > first {
		fragment = text[first : end+1]
	}
	repaired, err := jsonrepair.JSONRepair(fragment)
	if err != nil || !isJSONArray(repaired) {
		return ArrayExtraction{}
	}
	return ArrayExtraction{JSON: repaired, OK: true, Repaired: true}
}

// matchingBracket returns the index of the ']' closing the '[' at start,
// skipping brackets inside JSON strings, or -1 when the text ends first.
func matchingBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isJSONArray(s string) bool {
	var v []json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}
