package cache

import (
	"context"
	"sync"
	"time"

	"costwatch/internal/core"
)

// entry pairs a stored result with its creation timestamp. Valid iff
// now - createdAt <= TTL.
type entry struct {
	result    core.CostResult
	createdAt time.Time
}

// MemoryCache is an in-process Cache suitable for single-instance
// deployments. The clock is injectable for deterministic TTL tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache. A non-positive ttl falls back
// to DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

// NewMemoryCacheWithClock creates an in-memory cache with an explicit clock.
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached result if present and fresh, evicting an expired
// entry as a side effect.
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CostResult, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Set may have replaced it.
		if current, ok := c.entries[key]; ok && current.createdAt.Equal(e.createdAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, nil
	}

	result := e.result
	return &result, nil
}

// Set stores the result with the current timestamp.
func (c *MemoryCache) Set(_ context.Context, key string, result *core.CostResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{result: *result, createdAt: c.now()}
	return nil
}

// Invalidate removes a single entry.
func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
