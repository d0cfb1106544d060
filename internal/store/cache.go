package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// FactorCache is a read-through cache over Factors lookups. Apply and
// watch runs hit the same (path, resolution) keys repeatedly; the store
// is read-only to them, so stale entries are bounded by TTL alone.
type FactorCache struct {
	store *Store
	cache *gocache.Cache
}

// NewFactorCache wraps the store with an in-memory TTL cache.
func NewFactorCache(s *Store, ttl time.Duration) *FactorCache {
	return &FactorCache{
		store: s,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Factors returns the per-attribute mean factors for (path, resolution),
// consulting the cache first.
func (c *FactorCache) Factors(ctx context.Context, path, resolution string) (map[string]float64, error) {
	key := resolution + "|" + path

	if cached, found := c.cache.Get(key); found {
		return cached.(map[string]float64), nil
	}

	factors, err := c.store.Factors(ctx, path, resolution)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, factors, gocache.DefaultExpiration)
	return factors, nil
}

// Invalidate drops every cached entry, e.g. after a new learn run.
func (c *FactorCache) Invalidate() {
	c.cache.Flush()
}
