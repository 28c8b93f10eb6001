package io

import (
	"context"
	"fmt"
	"os"

	"github.com/OFFIS-RIT/castnet/pkg/loader"
)

// IOBookLoader reads plain text books from the local filesystem with
// caching.
type IOBookLoader struct {
	cache *loader.Cache
}

// NewIOBookLoader creates a new filesystem-based book loader.
func NewIOBookLoader() *IOBookLoader {
	return &IOBookLoader{cache: loader.NewCache()}
}

// GetText reads the file at file.Path. Results are cached.
func (l *IOBookLoader) GetText(ctx context.Context, file loader.BookFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.cache.Load(loader.CacheKey(file), func() (string, error) {
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read book: %w", err)
		}
		return string(data), nil
	})
}
