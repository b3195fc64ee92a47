// Package cache provides the two stores buckaroo keeps between runs.
//
// [Cache] is a small key-value interface for serialized metadata: HTTP API
// responses and complete recipes. It has a file backend for the CLI, a
// Redis backend for shared deployments and a null backend that disables
// caching.
//
// [Artifacts] is a content-addressed store for downloaded files. A file is
// addressed by a hash of its remote locator, never by its content, so the
// local path of an archive is known before it is fetched. Concurrent
// requests for the same locator share one download.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Implementations must be safe for concurrent use. A TTL of zero means the
// entry does not expire.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
