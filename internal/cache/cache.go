// package cache provides the playlist read cache used by the playlist store client.
//
// Values are opaque bytes keyed by string. A miss is reported as (nil, nil).
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	// Delete removes every given key; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
	Health(ctx context.Context) error
}

// Backend names accepted by [New].
const (
	BackendMemory = "memory"
	BackendValkey = "valkey"
	BackendNone   = "none"
)

// Options selects and tunes a cache backend.
type Options struct {
	Backend   string
	TTL       time.Duration
	ValkeyURL string
}

// New builds the cache named by opts.Backend. An empty backend selects memory.
func New(opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryCache(opts.TTL), nil
	case BackendValkey:
		return NewValkeyCache(opts.ValkeyURL)
	case BackendNone:
		return NopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// CacheError represents a cache operation error
type CacheError struct {
	Operation string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for key %q: %v", e.Operation, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// NopCache never stores anything; every read misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error                  { return nil }
func (NopCache) Close() error                                             { return nil }
func (NopCache) Health(context.Context) error                             { return nil }
