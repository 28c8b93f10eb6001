package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountMentions(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		names []string
		want  int
	}{
		{
			name:  "longest alternative first",
			text:  "Elizabeth Bennet smiled. Elizabeth left. elizabeth!",
			names: []string{"Elizabeth", "Elizabeth Bennet"},
			want:  3,
		},
		{
			name:  "whole words only",
			text:  "Bobby and Bob's dog. Bob-cat? Bob.",
			names: []string{"Bob"},
			want:  3,
		},
		{
			name:  "aliases counted",
			text:  "Lizzy laughed. Miss Bennet frowned. Elizabeth sighed.",
			names: []string{"Elizabeth", "Lizzy", "Miss Bennet"},
			want:  3,
		},
		{
			name:  "non ascii names",
			text:  "Zoë met Zoë. Zoëlle did not.",
			names: []string{"Zoë"},
			want:  2,
		},
		{
			name:  "shorter name after failed longer match",
			text:  "Bob Smithers arrived.",
			names: []string{"Bob", "Bob Smith"},
			want:  1,
		},
		{
			name:  "no names",
			text:  "Alice met Bob.",
			names: []string{"", " "},
			want:  0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountMentions(tc.text, tc.names))
		})
	}
}

func TestImportance(t *testing.T) {
	tests := []struct {
		name       string
		mentions   int
		maxM       int
		confidence float64
		want       int
	}{
		{name: "top character", mentions: 10, maxM: 10, confidence: 1, want: 100},
		{name: "half", mentions: 5, maxM: 10, confidence: 0.5, want: 50},
		{name: "nothing", mentions: 0, maxM: 0, confidence: 0, want: 0},
		{name: "confidence clamped", mentions: 10, maxM: 10, confidence: 4, want: 100},
		{name: "negative confidence", mentions: 10, maxM: 10, confidence: -1, want: 80},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Importance(tc.mentions, tc.maxM, tc.confidence))
		})
	}

	assert.Greater(t, Importance(8, 10, 0.5), Importance(4, 10, 0.5))
	assert.Greater(t, Importance(4, 10, 0.9), Importance(4, 10, 0.5))
}
