// Package segment splits a book into chapters and sentences.
package segment

import (
	"context"
	"strings"
)

// Segments holds the chapters and sentences of one text. Chapters is never
// empty for non-blank input.
type Segments struct {
	Chapters  []string `json:"chapters"`
	Sentences []string `json:"sentences"`
}

func (s Segments) ChapterCount() int  { return len(s.Chapters) }
func (s Segments) SentenceCount() int { return len(s.Sentences) }

// Options tunes the segmenter. Zero fields take the defaults.
type Options struct {
	// MinChapterLength is the minimum body length of a detected chapter.
	// Shorter bodies are not listed as chapters, but their sentences are
	// still returned.
	MinChapterLength int
	// MinChapters is the number of chapters below which detection is
	// considered failed and the text is cut into FallbackSegments parts.
	MinChapters      int
	FallbackSegments int
	// MinSegmentLength is the shortest fallback segment; short texts get
	// fewer than FallbackSegments parts.
	MinSegmentLength int
	// MinSentenceLength discards shorter fragments such as bare headings.
	MinSentenceLength int
}

func DefaultOptions() Options {
	return Options{
		MinChapterLength:  200,
		MinChapters:       3,
		FallbackSegments:  10,
		MinSegmentLength:  40,
		MinSentenceLength: 10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinChapterLength <= 0 {
		o.MinChapterLength = d.MinChapterLength
	}
	if o.MinChapters <= 0 {
		o.MinChapters = d.MinChapters
	}
	if o.FallbackSegments <= 0 {
		o.FallbackSegments = d.FallbackSegments
	}
	if o.MinSegmentLength <= 0 {
		o.MinSegmentLength = d.MinSegmentLength
	}
	if o.MinSentenceLength <= 0 {
		o.MinSentenceLength = d.MinSentenceLength
	}
	return o
}

// Segmenter splits raw text. It holds no state besides its options and is
// safe for concurrent use.
type Segmenter struct {
	opts Options
}

func New(opts Options) *Segmenter {
	return &Segmenter{opts: opts.withDefaults()}
}

// Split segments text with the default options.
func Split(ctx context.Context, text string) (Segments, error) {
	return New(DefaultOptions()).Split(ctx, text)
}

// Split returns the chapters and sentences of text. Malformed input never
// fails; the only error is ctx.Err() seen between chapters.
func (s *Segmenter) Split(ctx context.Context, text string) (Segments, error) {
	if err := ctx.Err(); err != nil {
		return Segments{}, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Segments{Chapters: []string{}, Sentences: []string{}}, nil
	}

	chapters := detectChapters(text, s.opts)
	if listed := listedChapters(chapters); listed >= s.opts.MinChapters {
		out := Segments{
			Chapters:  make([]string, 0, listed),
			Sentences: []string{},
		}
		for _, ch := range chapters {
			if err := ctx.Err(); err != nil {
				return Segments{}, err
			}
			if !ch.short {
				out.Chapters = append(out.Chapters, ch.text())
			}
			sentences, err := splitSentences(ctx, ch.body, s.opts.MinSentenceLength)
			if err != nil {
				return Segments{}, err
			}
			out.Sentences = append(out.Sentences, sentences...)
		}
		return out, nil
	}

	sentences, err := splitSentences(ctx, text, s.opts.MinSentenceLength)
	if err != nil {
		return Segments{}, err
	}
	return Segments{
		Chapters:  equalSegments(text, s.opts.FallbackSegments, s.opts.MinSegmentLength),
		Sentences: sentences,
	}, nil
}

// equalSegments cuts text into n parts of roughly equal length, fewer when
// parts would be shorter than minSize. Each cut is moved forward to the next
// whitespace so no word is split; blank parts are dropped.
func equalSegments(text string, n, minSize int) []string {
	n = min(n, len(text)/max(minSize, 1))
	if n <= 1 {
		return []string{strings.TrimSpace(text)}
	}
	size := len(text) / n

	var out []string
	start := 0
	for i := 1; i <= n && start < len(text); i++ {
		end := len(text)
		if i < n {
			end = snapToSpace(text, max(i*size, start))
		}
		if part := strings.TrimSpace(text[start:end]); part != "" {
			out = append(out, part)
		}
		start = end
	}
	return out
}

func snapToSpace(text string, pos int) int {
	for pos < len(text) && !isSpaceByte(text[pos]) {
		pos++
	}
	return pos
}

// isSpaceByte only looks at ASCII whitespace so cuts never land inside a
// multi-byte rune.
func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\n', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
