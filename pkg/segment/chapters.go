package segment

import (
	"regexp"
	"strings"
)

const numberWords = `ONE|TWO|THREE|FOUR|FIVE|SIX|SEVEN|EIGHT|NINE|TEN|ELEVEN|TWELVE|THIRTEEN|FOURTEEN|FIFTEEN|SIXTEEN|SEVENTEEN|EIGHTEEN|NINETEEN|TWENTY|THIRTY|FORTY|FIFTY|FIRST|SECOND|THIRD|FOURTH|FIFTH|SIXTH|SEVENTH|EIGHTH|NINTH|TENTH|LAST`

// Heading patterns, matched against single trimmed lines. The pattern with
// the most matches in a text decides its chapter layout.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^CHAPTER\s+(?:[IVXLCDM]+|\d+|(?:` + numberWords + `)(?:[- ](?:` + numberWords + `))?)\b`),
	regexp.MustCompile(`^Chapter\s+(?:[IVXLCDM]+|\d+|(?i:` + numberWords + `)(?:[- ](?i:` + numberWords + `))?)\b`),
	regexp.MustCompile(`^(?:BOOK|PART|Book|Part)\s+(?:[IVXLCDM]+|\d+|(?i:` + numberWords + `))\b`),
	regexp.MustCompile(`^[IVXLCDM]+\.?$`),
	regexp.MustCompile(`^\d{1,3}\.?$`),
}

type heading struct {
	start int // offset of the heading line
	end   int // offset just past the heading line
	line  string
}

type chapter struct {
	heading string
	body    string
	// short marks table-of-contents entries and brief front matter. They
	// are not listed as chapters but their sentences are kept.
	short bool
}

func (c chapter) text() string {
	if c.heading == "" {
		return strings.TrimSpace(c.body)
	}
	return strings.TrimSpace(c.heading + "\n\n" + strings.TrimSpace(c.body))
}

// findHeadings returns the matches of every heading pattern in text.
func findHeadings(text string) [][]heading {
	found := make([][]heading, len(headingPatterns))
	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		lineEnd := len(text)
		if end >= 0 {
			lineEnd = offset + end
		}
		line := strings.TrimSpace(text[offset:lineEnd])
		if line != "" && len(line) <= 120 {
			for i, re := range headingPatterns {
				if re.MatchString(line) {
					found[i] = append(found[i], heading{start: offset, end: lineEnd, line: line})
				}
			}
		}
		if end < 0 {
			break
		}
		offset = lineEnd + 1
	}
	return found
}

// detectChapters splits text at the headings of the most frequent heading
// pattern. Pieces whose body is shorter than MinChapterLength, such as
// table-of-contents entries or a title page, are marked short.
func detectChapters(text string, opts Options) []chapter {
	var best []heading
	for _, matches := range findHeadings(text) {
		if len(matches) > len(best) {
			best = matches
		}
	}
	if len(best) == 0 {
		return nil
	}

	var chapters []chapter
	if front := strings.TrimSpace(text[:best[0].start]); front != "" {
		chapters = append(chapters, chapter{body: front, short: len(front) < opts.MinChapterLength})
	}
	for i, h := range best {
		bodyEnd := len(text)
		if i+1 < len(best) {
			bodyEnd = best[i+1].start
		}
		body := strings.TrimSpace(text[h.end:bodyEnd])
		chapters = append(chapters, chapter{
			heading: h.line,
			body:    body,
			short:   len(body) < opts.MinChapterLength,
		})
	}
	return chapters
}

func listedChapters(chapters []chapter) int {
	n := 0
	for _, ch := range chapters {
		if !ch.short {
			n++
		}
	}
	return n
}
