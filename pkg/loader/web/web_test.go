package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/OFFIS-RIT/castnet/pkg/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebBookLoaderPlainText(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("CHAPTER I\n\nIt was a dark and stormy night."))
	}))
	defer srv.Close()

	l := NewWebBookLoader(srv.Client())
	file := loader.BookFile{ID: "1", Path: srv.URL + "/book.txt", Type: loader.BookFileTypeURL}

	text, err := l.GetText(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "CHAPTER I\n\nIt was a dark and stormy night.", text)

	_, err = l.GetText(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWebBookLoaderHTML(t *testing.T) {
	page := `<html><head><title>Book</title></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Chapter One</h1>
<p>` + strings.Repeat("Elizabeth walked to Netherfield through the muddy fields. ", 20) + `</p>
<p>` + strings.Repeat("Mr. Darcy was surprised to see her arrive alone. ", 20) + `</p>
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := NewWebBookLoader(srv.Client()).GetText(context.Background(),
		loader.BookFile{Path: srv.URL, Type: loader.BookFileTypeURL})
	require.NoError(t, err)
	assert.Contains(t, text, "Elizabeth walked to Netherfield")
	assert.Contains(t, text, "Mr. Darcy was surprised")
}

func TestWebBookLoaderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := NewWebBookLoader(srv.Client())
	_, err := l.GetText(context.Background(), loader.BookFile{Path: srv.URL + "/missing", Type: loader.BookFileTypeURL})
	require.Error(t, err)

	_, err = l.GetText(context.Background(), loader.BookFile{Path: "ftp://example.com/book", Type: loader.BookFileTypeURL})
	require.Error(t, err)
}
