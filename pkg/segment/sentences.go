package segment

import (
	"context"
	"strings"
)

// lines between context checks while splitting one block
const checkEvery = 512

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "st": {}, "mme": {}, "mlle": {},
	"messrs": {}, "prof": {}, "rev": {}, "capt": {}, "col": {}, "gen": {},
	"lt": {}, "sgt": {}, "jr": {}, "sr": {}, "hon": {}, "esq": {}, "vs": {},
	"etc": {}, "no": {}, "vol": {}, "ch": {},
}

var closers = []string{`"`, `'`, ")", "]", "}", "_", "”", "’", "»"}

type piece struct {
	text   string
	closed bool
}

// splitSentences splits a block of text into sentences. Line breaks inside
// a paragraph are folded into spaces, blank lines always end a sentence and
// fragments shorter than minLen are discarded.
func splitSentences(ctx context.Context, text string, minLen int) ([]string, error) {
	lines := strings.Split(text, "\n")
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); len(s) >= minLen {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, line := range lines {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		for _, p := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(p.text)
			if p.closed {
				flush()
			}
		}
	}
	flush()

	if sentences == nil {
		sentences = []string{}
	}
	return sentences, nil
}

// splitLineIntoSentences cuts one line after terminal punctuation (a run of
// '.', '!' or '?' plus closing quotes and brackets) that is followed by
// whitespace or the end of the line. Abbreviations, initials and numbered
// list markers do not end a sentence.
func splitLineIntoSentences(line string) []piece {
	var pieces []piece
	start := 0

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if c == '.' && (isNumericListing(line, i) || isAbbreviation(line, i)) {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			j++
		}
		for j < len(line) {
			n := closerLen(line[j:])
			if n == 0 {
				break
			}
			j += n
		}

		if j < len(line) && !isSpaceByte(line[j]) {
			i = j - 1
			continue
		}

		if s := strings.TrimSpace(line[start:j]); s != "" {
			pieces = append(pieces, piece{text: s, closed: true})
		}
		start = j
		i = j - 1
	}

	if rest := strings.TrimSpace(line[start:]); rest != "" {
		pieces = append(pieces, piece{text: rest})
	}
	return pieces
}

func closerLen(s string) int {
	for _, c := range closers {
		if strings.HasPrefix(s, c) {
			return len(c)
		}
	}
	return 0
}

// isNumericListing reports "3. " style list markers at the start of a line.
func isNumericListing(line string, dot int) bool {
	k := dot
	for k > 0 && line[k-1] >= '0' && line[k-1] <= '9' {
		k--
	}
	return k == 0 && k < dot && dot+1 < len(line) && line[dot+1] == ' '
}

// isAbbreviation reports whether the word ending at dot is a known title
// abbreviation or a single-letter initial.
func isAbbreviation(line string, dot int) bool {
	k := dot
	for k > 0 && isLetter(line[k-1]) {
		k--
	}
	word := line[k:dot]
	if word == "" {
		return false
	}
	if k > 0 && line[k-1] != ' ' && line[k-1] != '(' && line[k-1] != '"' && line[k-1] != '\'' {
		return false
	}
	if len(word) == 1 {
		// the pronoun "I" ends sentences far more often than it is an initial
		return word[0] >= 'A' && word[0] <= 'Z' && word[0] != 'I'
	}
	_, ok := abbreviations[strings.ToLower(word)]
	return ok
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
