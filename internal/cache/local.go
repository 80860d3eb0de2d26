package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalCache implements VerdictCache with an in-process store. Suitable for
// single-instance deployments.
type LocalCache struct {
	store *gocache.Cache
}

// NewLocalCache creates an in-memory verdict cache with the given TTL.
func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{
		store: gocache.New(ttl, 2*ttl),
	}
}

// Get retrieves a cached verdict.
func (c *LocalCache) Get(_ context.Context, key string) (bool, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return false, false, nil
	}
	inDomain, ok := v.(bool)
	return inDomain, ok, nil
}

// Set stores a verdict.
func (c *LocalCache) Set(_ context.Context, key string, inDomain bool) error {
	c.store.SetDefault(key, inDomain)
	return nil
}

// Close is a no-op for the local cache.
func (c *LocalCache) Close() error {
	return nil
}
