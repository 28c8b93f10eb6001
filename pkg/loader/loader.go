// Package loader fetches the raw text of a book from the filesystem, an
// EPUB container, a web page or an S3 bucket.
package loader

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when no loader handles a BookFile's type.
var ErrUnsupportedType = errors.New("unsupported book type")

type BookFileType string

const (
	BookFileTypeText BookFileType = "file"
	BookFileTypeEPUB BookFileType = "epub"
	BookFileTypeURL  BookFileType = "url"
	BookFileTypeS3   BookFileType = "s3"
)

// Valid reports whether t is one of the known types.
func (t BookFileType) Valid() bool {
	switch t {
	case BookFileTypeText, BookFileTypeEPUB, BookFileTypeURL, BookFileTypeS3:
		return true
	}
	return false
}

// BookFile identifies one book. Path is a filesystem path, URL or object
// key depending on Type.
type BookFile struct {
	ID   string       `json:"id"`
	Path string       `json:"path" validate:"required"`
	Type BookFileType `json:"type" validate:"required"`
}

// BookLoader returns the plain text of a book.
type BookLoader interface {
	GetText(ctx context.Context, file BookFile) (string, error)
}

// Router dispatches to the loader registered for a file's type.
type Router struct {
	loaders map[BookFileType]BookLoader
}

// NewRouter creates a Router. Nil loaders are ignored.
//
// Example:
//
//	r := loader.NewRouter(map[loader.BookFileType]loader.BookLoader{
//		loader.BookFileTypeText: io.NewIOBookLoader(),
//		loader.BookFileTypeEPUB: epub.NewEPUBBookLoader(),
//	})
//	text, err := r.GetText(ctx, loader.BookFile{Path: "moby.txt", Type: loader.BookFileTypeText})
func NewRouter(loaders map[BookFileType]BookLoader) *Router {
	r := &Router{loaders: make(map[BookFileType]BookLoader, len(loaders))}
	for t, l := range loaders {
		if l != nil {
			r.loaders[t] = l
		}
	}
	return r
}

func (r *Router) GetText(ctx context.Context, file BookFile) (string, error) {
	l, ok := r.loaders[file.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, file.Type)
	}
	return l.GetText(ctx, file)
}

// Supports reports whether a loader is registered for t.
func (r *Router) Supports(t BookFileType) bool {
	_, ok := r.loaders[t]
	return ok
}

// CacheKey identifies a file in the loader caches.
func CacheKey(file BookFile) string {
	return string(file.Type) + ":" + file.ID + ":" + file.Path
}
