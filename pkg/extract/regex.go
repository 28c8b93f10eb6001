package extract

import (
	"context"
	"regexp"
	"strings"
)

const speechVerbs = `said|asked|replied|whispered|shouted|murmured|called|told|answered|cried|exclaimed|muttered|snapped`

var (
	// runs of up to four capitalised words, titles with a period allowed
	capitalisedRun = regexp.MustCompile(`\b(?:(?:Mr|Mrs|Ms|Dr|St|Mme|Mlle|Capt|Col|Prof|Rev)\.\s+)?[A-Z][a-z'’]+(?:\s+[A-Z][a-z'’]+){0,3}\b`)
	speakerAfter   = regexp.MustCompile(`\b(?:` + speechVerbs + `)\s+([A-Z][a-z]+)`)
	speakerBefore  = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:` + speechVerbs + `)\b`)
)

const (
	regexConfidence   = 0.4
	speakerConfidence = 0.6
)

// RegexStrategy proposes capitalised word runs that are not stopwords.
// Names seen next to a speech verb get a higher confidence.
type RegexStrategy struct{}

func NewRegexStrategy() *RegexStrategy { return &RegexStrategy{} }

func (s *RegexStrategy) Name() string { return "regex" }

func (s *RegexStrategy) Attempt(ctx context.Context, text string, opts Options) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	speakers := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{speakerAfter, speakerBefore} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			speakers[m[1]] = struct{}{}
		}
	}

	t := newTally()
	for _, run := range capitalisedRun.FindAllString(text, -1) {
		words := strings.Fields(run)
		conf := regexConfidence
		for _, w := range words {
			if _, ok := speakers[w]; ok {
				conf = speakerConfidence
				break
			}
		}
		t.add(words, conf)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.candidates(opts.MinMentions, opts.MaxCharacters*2), nil
}
