package timezone

import (
	"context"
	"sync"
)

// Cache memoizes resolved timezones. It is owned by the caller and handed to
// the Resolver, so tests and workers can run with fully isolated state.
// Implementations must be safe for concurrent use; a failed lookup is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, tz string)
	Clear(ctx context.Context) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	entries sync.Map // key -> tz
}

// NewMemoryCache creates an empty process-local cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key, tz string) {
	c.entries.Store(key, tz)
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
