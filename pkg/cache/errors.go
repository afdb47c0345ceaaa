package cache

import "errors"

// ErrBackend is returned for backend failures (I/O errors, connection
// errors). Callers should treat backend failures as misses: the cache is
// an optimization, never a source of truth.
var ErrBackend = errors.New("cache backend error")
