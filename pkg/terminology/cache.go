package terminology

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/dukex/curator/pkg/models"
)

// Cache stores computed expansions keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Expansion, bool, error)
	Set(ctx context.Context, key string, expansion *models.Expansion) error
}

// CacheKey normalizes a canonical into a cache key: surrounding whitespace and trailing
// slashes are removed, scheme and host are lower-cased and the version is appended.
func CacheKey(c models.Canonical) string {
	raw := strings.TrimRight(strings.TrimSpace(c.URL), "/")

	if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
		parsed.Scheme = strings.ToLower(parsed.Scheme)
		parsed.Host = strings.ToLower(parsed.Host)
		raw = parsed.String()
	}

	return raw + "|" + strings.TrimSpace(c.Version)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*models.Expansion
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*models.Expansion)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.Expansion, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expansion, ok := c.entries[key]

	return expansion.Clone(), ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, expansion *models.Expansion) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = expansion.Clone()

	return nil
}
