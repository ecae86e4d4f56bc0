// Package cache provides TTL-based memoization for cost query results.
// Supports both in-memory and Redis backends for multi-instance deployments.
package cache

import (
	"context"
	"time"

	"costwatch/internal/core"
)

// DefaultTTL is the default time-to-live for cached cost results.
const DefaultTTL = 5 * time.Minute

// Cache stores cost results keyed by the serialized query identity.
// Implementations must be safe for concurrent use. Entries are immutable
// once written and overwritten atomically as whole values, so a duplicate
// concurrent fetch overwriting the same key is an acceptable race.
type Cache interface {
	// Get returns the cached result for key, or nil if absent or expired.
	// Expired entries are treated as absent and evicted lazily.
	Get(ctx context.Context, key string) (*core.CostResult, error)

	// Set stores the result under key with the current timestamp,
	// overwriting any prior entry.
	Set(ctx context.Context, key string, result *core.CostResult) error

	// Invalidate removes a single entry.
	Invalidate(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}
