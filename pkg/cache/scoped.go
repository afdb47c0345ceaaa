package cache

import (
	"context"
	"time"
)

// Scoped wraps a cache with a key prefix so multiple workspaces can share
// one backend without colliding. This matters for the Redis backend, where
// several optimization runs against different workspaces may point at the
// same server.
//
// Example usage:
//
//	shared, _ := cache.NewRedisCache(addr, "", 0)
//	ws := cache.NewScoped(shared, "ws:"+workspaceID+":")
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a cache whose keys are all prefixed.
func NewScoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Get retrieves a value under the prefixed key.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a value under the prefixed key.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes the prefixed key.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the underlying cache.
func (s *Scoped) Close() error {
	return s.inner.Close()
}

// Ensure Scoped implements Cache.
var _ Cache = (*Scoped)(nil)
