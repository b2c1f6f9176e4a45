package cache

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process [Cache] backed by go-cache.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after ttl unless Set overrides it.
// A non-positive ttl keeps entries until deleted.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		return &MemoryCache{store: gocache.New(gocache.NoExpiration, 0)}
	}
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}

	v, ok := c.store.Get(key)
	if !ok {
		return nil, nil
	}
	return slices.Clone(v.([]byte)), nil
}

// Set stores a copy of value. A zero expiration uses the cache default.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &CacheError{Operation: "set", Key: key, Err: err}
	}

	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	c.store.Set(key, slices.Clone(value), expiration)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.store.Delete(k)
	}
	return nil
}

// Len reports the number of unexpired entries.
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}

func (c *MemoryCache) Health(context.Context) error { return nil }
