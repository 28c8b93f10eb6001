package extract

import (
	"sort"
	"strings"
)

var titles = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "sir": {}, "lady": {},
	"lord": {}, "madame": {}, "mme": {}, "mlle": {}, "monsieur": {}, "master": {},
	"mistress": {}, "captain": {}, "capt": {}, "colonel": {}, "col": {},
	"general": {}, "major": {}, "lieutenant": {}, "professor": {}, "prof": {},
	"rev": {}, "reverend": {}, "father": {}, "mother": {}, "uncle": {}, "aunt": {},
	"king": {}, "queen": {}, "prince": {}, "princess": {}, "count": {},
	"countess": {}, "duke": {}, "duchess": {}, "saint": {}, "st": {},
}

// stopwords are capitalised words that begin sentences or name things that
// are not characters.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "but": {}, "or": {}, "nor": {},
	"for": {}, "yet": {}, "so": {}, "if": {}, "then": {}, "when": {}, "while": {},
	"where": {}, "what": {}, "why": {}, "how": {}, "who": {}, "whom": {},
	"which": {}, "this": {}, "that": {}, "these": {}, "those": {}, "there": {},
	"here": {}, "he": {}, "she": {}, "it": {}, "they": {}, "we": {}, "you": {},
	"i": {}, "me": {}, "him": {}, "her": {}, "them": {}, "us": {}, "his": {},
	"hers": {}, "its": {}, "their": {}, "our": {}, "your": {}, "my": {},
	"mine": {}, "yes": {}, "no": {}, "not": {}, "oh": {}, "ah": {}, "well": {},
	"now": {}, "still": {}, "also": {}, "however": {}, "anyway": {},
	"therefore": {}, "meanwhile": {}, "maybe": {}, "perhaps": {}, "after": {},
	"before": {}, "as": {}, "at": {}, "by": {}, "in": {}, "of": {}, "on": {},
	"to": {}, "with": {}, "from": {}, "into": {}, "upon": {}, "all": {},
	"some": {}, "every": {}, "each": {}, "one": {}, "chapter": {}, "book": {},
	"part": {}, "volume": {}, "contents": {}, "end": {}, "project": {},
	"gutenberg": {}, "ebook": {}, "god": {}, "heaven": {}, "christmas": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {}, "january": {}, "february": {}, "march": {},
	"april": {}, "may": {}, "june": {}, "july": {}, "august": {},
	"september": {}, "october": {}, "november": {}, "december": {},
	"english": {}, "french": {}, "england": {}, "london": {}, "paris": {},
	"do": {}, "did": {}, "does": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"let": {}, "come": {}, "go": {}, "good": {}, "dear": {}, "poor": {},
	"thank": {}, "thanks": {}, "please": {}, "sure": {}, "indeed": {},
	"nothing": {}, "everything": {}, "something": {}, "nobody": {},
}

func isTitle(word string) bool {
	_, ok := titles[strings.ToLower(strings.TrimSuffix(word, "."))]
	return ok
}

func isStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(strings.TrimSuffix(word, "."))]
	return ok
}

// cleanName turns a capitalised run into a candidate name and, if the run
// began with a title, the titled form as alias. ok is false when nothing
// name-like remains.
func cleanName(words []string) (name string, titled string, ok bool) {
	words = append([]string(nil), words...)
	for len(words) > 0 && isStopword(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isStopword(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return "", "", false
	}
	for i, w := range words {
		words[i] = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
	}

	rest := words
	for len(rest) > 0 && isTitle(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", "", false
	}
	for _, w := range rest {
		if isStopword(w) || len(w) < 2 {
			return "", "", false
		}
	}
	name = strings.Join(rest, " ")
	if len(rest) < len(words) {
		titled = strings.Join(words, " ")
	}
	return name, titled, true
}

// tally counts name proposals of a heuristic strategy in first-seen order.
type tally struct {
	order      []string
	counts     map[string]int
	titled     map[string][]string
	confidence map[string]float64
}

func newTally() *tally {
	return &tally{
		counts:     map[string]int{},
		titled:     map[string][]string{},
		confidence: map[string]float64{},
	}
}

func (t *tally) add(words []string, confidence float64) {
	name, titled, ok := cleanName(words)
	if !ok {
		return
	}
	if _, seen := t.counts[name]; !seen {
		t.order = append(t.order, name)
	}
	t.counts[name]++
	t.confidence[name] = max(t.confidence[name], confidence)
	if titled != "" {
		t.titled[name] = addAliases(name, t.titled[name], titled)
	}
}

// candidates returns names proposed at least minCount times, most frequent
// first, capped at limit.
func (t *tally) candidates(minCount, limit int) []Candidate {
	names := make([]string, 0, len(t.order))
	for _, n := range t.order {
		if t.counts[n] >= minCount {
			names = append(names, n)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return t.counts[names[i]] > t.counts[names[j]] })
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]Candidate, 0, len(names))
	for _, n := range names {
		aliases := t.titled[n]
		if aliases == nil {
			aliases = []string{}
		}
		out = append(out, Candidate{Name: n, Aliases: aliases, Confidence: t.confidence[n]})
	}
	return out
}
