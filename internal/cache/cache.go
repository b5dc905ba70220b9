// internal/cache/cache.go
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 5 * time.Minute

// Store is a key/value store with per-entry expiry.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	c *gocache.Cache
}

func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *Memory) Get(key string) (any, bool) {
	return m.c.Get(key)
}

// Set stores value under key. A non-positive ttl keeps the entry until it is
// overwritten.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
}
