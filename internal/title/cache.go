package title

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// CachingResolver memoizes titles from another resolver. Fallback results
// (the URL itself) are not cached so a page that was down is retried on the
// next render.
type CachingResolver struct {
	next  Resolver
	cache *ristretto.Cache[string, string]
}

// NewCachingResolver wraps next with a cache of roughly maxEntries titles.
func NewCachingResolver(next Resolver, maxEntries int64) (*CachingResolver, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create title cache: %w", err)
	}
	return &CachingResolver{next: next, cache: cache}, nil
}

// Resolve returns the cached title for url or resolves and caches it.
func (c *CachingResolver) Resolve(ctx context.Context, url string) string {
	if t, ok := c.cache.Get(url); ok {
		return t
	}
	t := c.next.Resolve(ctx, url)
	if t != url {
		c.cache.Set(url, t, 1)
	}
	return t
}

// Wait blocks until pending cache writes are applied.
func (c *CachingResolver) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *CachingResolver) Close() {
	c.cache.Close()
}
