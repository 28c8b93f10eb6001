package extract

import (
	"strings"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/pkoukk/tiktoken-go"
)

const sampleSeparator = "\n\n[...]\n\n"

// SampleText bounds text to roughly budget tokens by taking equal slices
// from the beginning, the middle and the end. Characters introduced late in
// a book are thereby still visible to the model. Token counts use enc when
// given and a four-characters-per-token estimate otherwise.
func SampleText(text string, budget int, enc *tiktoken.Tiktoken) string {
	text = strings.TrimSpace(text)
	if budget <= 0 || ai.CountTokens(enc, text) <= budget {
		return text
	}

	part := budget / 3
	partBytes := part * 4
	if partBytes*3 >= len(text) {
		partBytes = len(text) / 3
	}

	mid := len(text)/2 - partBytes/2
	slices := []string{
		cutWords(text, 0, partBytes),
		cutWords(text, mid, mid+partBytes),
		cutWords(text, len(text)-partBytes, len(text)),
	}
	if enc != nil {
		for i, s := range slices {
			slices[i] = trimTokens(enc, s, part)
		}
	}
	return strings.Join(slices, sampleSeparator)
}

// cutWords returns text[start:end] widened to whole words.
func cutWords(text string, start, end int) string {
	start = max(start, 0)
	end = min(end, len(text))
	for start > 0 && !isSpaceByteAt(text, start-1) {
		start--
	}
	for end < len(text) && !isSpaceByteAt(text, end) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func isSpaceByteAt(s string, i int) bool {
	switch s[i] {
	case ' ', '\n', '\t', '\r':
		return true
	}
	return false
}

func trimTokens(enc *tiktoken.Tiktoken, s string, limit int) string {
	tokens := enc.Encode(s, nil, nil)
	if len(tokens) <= limit {
		return s
	}
	return strings.TrimSpace(enc.Decode(tokens[:limit]))
}
