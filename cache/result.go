// Package cache implements the shared result cache: TTL expiry checked
// lazily on access, capacity eviction by lowest access count (ties broken by
// oldest insertion), and hit/miss accounting.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"
)

type entry struct {
	key         string
	value       any
	insertedAt  time.Time
	ttl         time.Duration
	accessCount int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// ResultCache caches pipeline results keyed by a stable hash of a primary
// string and a context string. Safe for concurrent use.
type ResultCache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	items      map[string]*entry
	hits       int64
	misses     int64
}

// New creates a ResultCache with the given capacity and default TTL.
func New(capacity int, defaultTTL time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = 512
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &ResultCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		items:      make(map[string]*entry, capacity),
	}
}

// Key derives the stable cache key for (primary, context).
func Key(primary, context string) string {
	sum := sha1.Sum([]byte(primary + "|" + context))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for (primary, context). An entry past its TTL
// is deleted and counted as a miss.
func (c *ResultCache) Get(primary, context string) (any, bool) {
	key := Key(primary, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Since(ent.insertedAt) > ent.ttl {
		delete(c.items, key)
		c.misses++
		return nil, false
	}
	ent.accessCount++
	c.hits++
	return ent.value, true
}

// Put inserts a value under (primary, context). A non-positive ttl uses the
// cache default. At capacity the entry with the lowest access count is
// evicted first, ties broken by oldest insertion time.
func (c *ResultCache) Put(primary, context string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Key(primary, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.insertedAt = time.Now()
		ent.ttl = ttl
		return
	}
	if len(c.items) >= c.capacity {
		c.evictOne()
	}
	c.items[key] = &entry{
		key:        key,
		value:      value,
		insertedAt: time.Now(),
		ttl:        ttl,
	}
}

// evictOne removes the coldest entry. Caller holds the lock.
func (c *ResultCache) evictOne() {
	var victim *entry
	for _, ent := range c.items {
		if victim == nil {
			victim = ent
			continue
		}
		if ent.accessCount < victim.accessCount ||
			(ent.accessCount == victim.accessCount && ent.insertedAt.Before(victim.insertedAt)) {
			victim = ent
		}
	}
	if victim != nil {
		delete(c.items, victim.key)
	}
}

// CleanupExpired sweeps all TTL-expired entries and returns how many were
// removed.
func (c *ResultCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := time.Now()
	for key, ent := range c.items {
		if now.Sub(ent.insertedAt) > ent.ttl {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets the counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.hits = 0
	c.misses = 0
}

// Stats returns current size and hit/miss counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:    len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}
