package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

const (
	personConfidence = 0.7
	properConfidence = 0.5
	nlpChunkSize     = 20000
)

// NLPStrategy tags the text with prose and proposes PERSON entities and runs
// of proper-noun tokens. The text is tagged in chunks so cancellation is
// observed between them.
type NLPStrategy struct {
	chunkSize int
}

func NewNLPStrategy() *NLPStrategy {
	return &NLPStrategy{chunkSize: nlpChunkSize}
}

func (s *NLPStrategy) Name() string { return "nlp" }

func (s *NLPStrategy) Attempt(ctx context.Context, text string, opts Options) (candidates []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = fmt.Errorf("nlp tagger panicked: %v", r)
		}
	}()

	t := newTally()
	for _, chunk := range chunkText(text, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := prose.NewDocument(chunk, prose.WithSegmentation(false))
		if err != nil {
			return nil, fmt.Errorf("tag chunk: %w", err)
		}

		for _, ent := range doc.Entities() {
			if ent.Label == "PERSON" {
				t.add(strings.Fields(ent.Text), personConfidence)
			}
		}

		var run []string
		flush := func() {
			if len(run) > 0 {
				t.add(run, properConfidence)
				run = nil
			}
		}
		for _, tok := range doc.Tokens() {
			if tok.Tag == "NNP" && startsUpper(tok.Text) {
				run = append(run, tok.Text)
				continue
			}
			flush()
		}
		flush()
	}

	return t.candidates(opts.MinMentions, opts.MaxCharacters*2), nil
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// chunkText cuts text into pieces of at most size bytes at paragraph or
// word boundaries.
func chunkText(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndexAny(text[:size], " \n\t")
		}
		if cut <= 0 {
			cut = size
		}
		if c := strings.TrimSpace(text[:cut]); c != "" {
			chunks = append(chunks, c)
		}
		text = text[cut:]
	}
	if c := strings.TrimSpace(text); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}
