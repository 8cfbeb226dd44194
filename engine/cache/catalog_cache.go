package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// cachedEntry wraps a value with the time it was stored
type cachedEntry struct {
	value    interface{}
	storedAt time.Time
}

// TTLCache is a small expiring cache for catalog reads (quest definitions,
// shop items, district rosters). Entries past their TTL are treated as
// missing; stale values never leave the cache. The zero clock defaults to
// time.Now, tests inject their own.
type TTLCache struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewTTLCache(size int, ttl time.Duration) *TTLCache {
	cache, _ := lru.New(size)
	return &TTLCache{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

// NewTTLCacheWithClock is NewTTLCache with an injected clock.
func NewTTLCacheWithClock(size int, ttl time.Duration, now func() time.Time) *TTLCache {
	c := NewTTLCache(size, ttl)
	c.now = now
	return c
}

// Get returns the cached value for key, or (nil, false) when the key is
// missing or expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	raw, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	entry := raw.(cachedEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return nil, false
	}

	return entry.value, true
}

func (c *TTLCache) Set(key string, value interface{}) {
	c.cache.Add(key, cachedEntry{value: value, storedAt: c.now()})
}

// Invalidate drops a single key, for writes that must be visible on the next
// read.
func (c *TTLCache) Invalidate(key string) {
	c.cache.Remove(key)
}

// Purge drops everything.
func (c *TTLCache) Purge() {
	c.cache.Purge()
}
