// Package cache holds backend responses keyed by the request that produced
// them, with TTL-based expiry.
package cache

import (
	"sync"
	"time"
)

// Key identifies a cached response. Two requests map to the same entry when
// they target the same backend with the same forwarded community, context
// suffix, operation, and varbind tail.
type Key struct {
	BackendHost    string
	Community      string
	CommunityIndex string
	PDUType        byte
	Data           string
}

type entry struct {
	responseData []byte
	storedAt     time.Time
}

// Cache is a TTL map guarded by a single mutex. Entries are only removed by
// expiry: inline during Lookup, or in bulk by SweepExpired.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[Key]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[Key]entry),
	}
}

// Lookup returns the cached response for key if it is still fresh at now.
// A stale entry is evicted on the spot and reported as a miss. The returned
// slice must not be modified.
func (c *Cache) Lookup(key Key, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(e.storedAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, false
	}
	return e.responseData, true
}

// Insert stores responseData under key, overwriting any existing entry. The
// data is copied.
func (c *Cache) Insert(key Key, responseData []byte, now time.Time) {
	data := make([]byte, len(responseData))
	copy(data, responseData)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{responseData: data, storedAt: now}
}

// SweepExpired removes every entry stale at now and returns how many were
// removed.
func (c *Cache) SweepExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		if now.After(e.storedAt.Add(c.ttl)) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }
