package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountMentions counts non-overlapping, case-insensitive whole-word
// occurrences of any of names in text. At each position the longest
// matching name wins, so "Elizabeth Bennet" is one mention, not two.
func CountMentions(text string, names []string) int {
	alts := mentionAlternatives(names)
	if len(alts) == 0 || text == "" {
		return 0
	}

	quoted := make([]string, len(alts))
	for i, a := range alts {
		quoted[i] = regexp.QuoteMeta(a)
	}
	re := regexp.MustCompile(strings.Join(quoted, "|"))

	lower := strings.ToLower(text)
	count := 0
	for pos := 0; pos < len(lower); {
		loc := re.FindStringIndex(lower[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		matched := 0
		if wordBoundaryBefore(lower, start) {
			for _, a := range alts {
				if strings.HasPrefix(lower[start:], a) && wordBoundaryAfter(lower, start+len(a)) {
					matched = len(a)
					break
				}
			}
		}
		if matched > 0 {
			count++
			pos = start + matched
			continue
		}
		_, size := utf8.DecodeRuneInString(lower[start:])
		pos = start + max(size, 1)
	}
	return count
}

// mentionAlternatives lowercases, trims and dedupes names, longest first.
func mentionAlternatives(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	alts := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		alts = append(alts, n)
	}
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	return alts
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r) || !startsWithWordRune(s[i:])
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r) || !endsWithWordRune(s[:i])
}

func startsWithWordRune(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func endsWithWordRune(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

// Importance scores a character in [0, 100] from its share of the top
// mention count (80%) and its extraction confidence (20%).
func Importance(mentions, maxMentions int, confidence float64) int {
	share := 0.0
	if maxMentions > 0 {
		share = float64(mentions) / float64(maxMentions)
	}
	confidence = math.Max(0, math.Min(1, confidence))
	score := math.Round(100 * (0.8*share + 0.2*confidence))
	return int(math.Max(0, math.Min(100, score)))
}
