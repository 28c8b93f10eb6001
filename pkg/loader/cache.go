package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoises loaded texts. Concurrent loads of the same key share one
// call; failed loads are not cached.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

func (c *Cache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[key]
	return text, ok
}

// Load returns the cached text for key or calls fn to produce it.
func (c *Cache) Load(key string, fn func() (string, error)) (string, error) {
	if text, ok := c.get(key); ok {
		return text, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if text, ok := c.get(key); ok {
			return text, nil
		}
		text, err := fn()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = text
		c.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
