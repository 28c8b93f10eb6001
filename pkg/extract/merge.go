package extract

import (
	"strings"
	"unicode"
)

// MergeAliases folds candidates that denote the same character.
//
// Two candidates merge when one's name equals the other's name or one of
// its aliases (case-insensitively), or when the word-overlap similarity of
// one's name against the other's name or any alias reaches threshold. The
// first-seen name stays canonical, aliases are unioned and the highest
// confidence is kept. Passes repeat until nothing merges, so
// MergeAliases(MergeAliases(x)) == MergeAliases(x).
func MergeAliases(candidates []Candidate, threshold float64) []Candidate {
	groups := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if n, ok := normalizeCandidate(c); ok {
			groups = append(groups, n)
		}
	}

	for changed := true; changed; {
		changed = false
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); {
				if !shouldMerge(groups[i], groups[j], threshold) {
					j++
					continue
				}
				groups[i] = absorb(groups[i], groups[j])
				groups = append(groups[:j], groups[j+1:]...)
				changed = true
			}
		}
	}
	return groups
}

func normalizeCandidate(c Candidate) (Candidate, bool) {
	name := strings.Join(strings.Fields(c.Name), " ")
	if name == "" {
		return Candidate{}, false
	}
	out := Candidate{Name: name, Aliases: []string{}, Confidence: c.Confidence}
	out.Aliases = addAliases(out.Name, out.Aliases, c.Aliases...)
	return out, true
}

// addAliases appends names that are neither blank, the canonical name nor
// already present, comparing case-insensitively.
func addAliases(canonical string, aliases []string, names ...string) []string {
	for _, n := range names {
		n = strings.Join(strings.Fields(n), " ")
		if n == "" || strings.EqualFold(n, canonical) {
			continue
		}
		dup := false
		for _, a := range aliases {
			if strings.EqualFold(a, n) {
				dup = true
				break
			}
		}
		if !dup {
			aliases = append(aliases, n)
		}
	}
	return aliases
}

func absorb(into, from Candidate) Candidate {
	names := append([]string{from.Name}, from.Aliases...)
	into.Aliases = addAliases(into.Name, append([]string{}, into.Aliases...), names...)
	into.Confidence = max(into.Confidence, from.Confidence)
	return into
}

func shouldMerge(a, b Candidate, threshold float64) bool {
	return matchesAny(a.Name, b, threshold) || matchesAny(b.Name, a, threshold)
}

func matchesAny(name string, other Candidate, threshold float64) bool {
	if strings.EqualFold(name, other.Name) {
		return true
	}
	if Similarity(name, other.Name) >= threshold {
		return true
	}
	for _, alias := range other.Aliases {
		if strings.EqualFold(name, alias) || Similarity(name, alias) >= threshold {
			return true
		}
	}
	return false
}

// Similarity is the number of tokens of the shorter name found in the
// longer name divided by the token count of the longer name. Tokens are
// lowercased and stripped of surrounding punctuation.
func Similarity(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shorter, longer := ta, tb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	present := make(map[string]struct{}, len(longer))
	for _, t := range longer {
		present[t] = struct{}{}
	}
	shared := 0
	for _, t := range shorter {
		if _, ok := present[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(longer))
}

func nameTokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
