// Package epub extracts the text of EPUB books in spine order.
package epub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/castnet/pkg/loader"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNoRootfile = errors.New("no rootfiles found in epub")

// EPUBBookLoader reads EPUB files from the local filesystem with caching.
type EPUBBookLoader struct {
	cache *loader.Cache
}

func NewEPUBBookLoader() *EPUBBookLoader {
	return &EPUBBookLoader{cache: loader.NewCache()}
}

func (l *EPUBBookLoader) GetText(ctx context.Context, file loader.BookFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.cache.Load(loader.CacheKey(file), func() (string, error) {
		rc, err := epub.OpenReader(file.Path)
		if err != nil {
			return "", fmt.Errorf("failed to open epub: %w", err)
		}
		defer rc.Close()
		return spineText(ctx, &rc.Reader)
	})
}

// TextFromBytes extracts the text of an in-memory EPUB container.
func TextFromBytes(ctx context.Context, data []byte) (string, error) {
	r, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open epub: %w", err)
	}
	return spineText(ctx, r)
}

// spineText concatenates the documents of the first rootfile's spine.
// Unreadable documents are skipped.
func spineText(ctx context.Context, r *epub.Reader) (string, error) {
	if len(r.Rootfiles) == 0 {
		return "", errNoRootfile
	}

	book := r.Rootfiles[0]
	var out strings.Builder
	for _, ref := range book.Spine.Itemrefs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if ref.Item == nil {
			continue
		}
		rc, err := ref.Item.Open()
		if err != nil {
			logger.Debug("[Loader] Skipping unreadable epub item", "href", ref.Item.HREF, "err", err)
			continue
		}
		text, err := htmlText(rc)
		rc.Close()
		if err != nil {
			logger.Debug("[Loader] Skipping unparsable epub item", "href", ref.Item.HREF, "err", err)
			continue
		}
		if text == "" {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n\n")
	}
	return strings.TrimSpace(out.String()), nil
}

// htmlText renders an XHTML document as plain text. Block elements end a
// line so chapter headings stay on lines of their own.
func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if out.Len() > 0 && !endsWithSpace(out.String()) {
					out.WriteByte(' ')
				}
				out.WriteString(t)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Br:
				out.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) && out.Len() > 0 && !endsWithNewline(out.String()) {
			out.WriteString("\n\n")
		}
	}
	walk(doc)
	return strings.TrimSpace(out.String()), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Blockquote, atom.Section, atom.Article, atom.Pre, atom.Tr:
		return true
	}
	return false
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

func endsWithNewline(s string) bool {
	return strings.HasSuffix(s, "\n")
}
