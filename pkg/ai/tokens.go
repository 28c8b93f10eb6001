package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

// NewEncoder loads a tiktoken encoding by name (e.g. "o200k_base"). The BPE
// ranks are fetched on first use and cached by tiktoken-go, so callers that
// must stay offline pass a nil encoder around instead.
func NewEncoder(name string) (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding(name)
}

// CountTokens counts the tokens of s with enc, or estimates four characters
// per token when enc is nil.
func CountTokens(enc *tiktoken.Tiktoken, s string) int {
	if enc == nil {
		return (len(s) + 3) / 4
	}
	return len(enc.Encode(s, nil, nil))
}
