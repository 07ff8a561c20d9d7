// Package cache provides key/value storage for derived artifacts and small
// local state.
//
// kudsight stores two kinds of entries:
//   - preferences (the persisted theme), which never expire
//   - rendered diagrams, keyed by a hash of the dataset content
//
// # Backends
//
//   - [FileCache]: sharded JSON entries under a directory (CLI default)
//   - [RedisCache]: a Redis server, for a dataset server shared by several users
//   - [NullCache]: stores nothing
//
// Keys are built by a [Keyer], so backends never see raw user input.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// Clearer is implemented by caches that can drop entries in bulk.
type Clearer interface {
	// Clear removes every entry whose key starts with prefix and reports
	// how many were removed. An empty prefix clears everything.
	Clear(ctx context.Context, prefix string) (int, error)
}
