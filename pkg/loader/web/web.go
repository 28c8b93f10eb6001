package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
)

// maxBodySize bounds a fetched document.
const maxBodySize = 64 << 20

// WebBookLoader fetches books from URLs. HTML pages are reduced to their
// readable article text; any other content type is returned as is.
type WebBookLoader struct {
	client *http.Client
	cache  *loader.Cache
}

// NewWebBookLoader creates a web loader. A nil client uses one with a
// two minute timeout.
func NewWebBookLoader(client *http.Client) *WebBookLoader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &WebBookLoader{
		client: client,
		cache:  loader.NewCache(),
	}
}

// GetText fetches file.Path and extracts its text. Results are cached.
func (l *WebBookLoader) GetText(ctx context.Context, file loader.BookFile) (string, error) {
	return l.cache.Load(loader.CacheKey(file), func() (string, error) {
		return l.fetch(ctx, file.Path)
	})
}

func (l *WebBookLoader) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodySize)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		article, err := readability.FromReader(body, u)
		if err != nil {
			return "", fmt.Errorf("failed to parse html: %w", err)
		}
		var builder strings.Builder
		if err := article.RenderText(&builder); err != nil {
			return "", fmt.Errorf("failed to render article text: %w", err)
		}
		return builder.String(), nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}
