// Package cache provides the measurement cache used to skip recomputation
// of slide metrics whose inputs are provably unchanged.
//
// The cache stores serialized values keyed by a content hash of everything
// the value depends on (see [Key]). Backends:
//
//   - [FileCache]: JSON entries under the workspace state directory; the
//     default for CLI runs.
//   - [RedisCache]: shared cache for fleet setups where many workspaces are
//     optimized by separate processes.
//   - [NullCache]: caching disabled.
//
// Caching here is strictly an optimization. Every cached value is a pure
// function of its key inputs, so a cold cache only costs time.
package cache

import (
	"context"
	"time"
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A non-positive TTL stores forever.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
