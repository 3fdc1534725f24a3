// Package ttlcache provides a small mutex-guarded cache with per-entry TTL
// and a capacity cap. The clock is injectable so tests can drive expiry
// deterministically.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]entry[V]
}

func New[V any](ttl time.Duration, max int) *Cache[V] {
	return NewWithClock[V](ttl, max, time.Now)
}

func NewWithClock[V any](ttl time.Duration, max int, now func() time.Time) *Cache[V] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if max <= 0 {
		max = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{ttl: ttl, max: max, now: now, entries: make(map[string]entry[V], max)}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the cache TTL. A concurrent Set for the
// same key is last-write-wins.
func (c *Cache[V]) Set(key string, value V) {
	if key == "" {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	if len(c.entries) > c.max {
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
			if len(c.entries) <= c.max {
				break
			}
		}
	}
}

// Flush drops every entry.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V], c.max)
}

// Len counts entries, expired ones included until they are evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
