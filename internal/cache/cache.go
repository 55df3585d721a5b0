// Package cache stores serialized angle sets so the API does not hit SQLite
// on every request. Two implementations exist: an in-memory map with TTL
// cleanup for single-node deployments and a Redis client for shared ones.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/obplab/swingmech/internal/metrics"
)

// Cache is a byte-valued cache with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes a single key.
	Delete(ctx context.Context, key string)
	// Clear removes everything. Called after a pipeline refresh so stale
	// angle sets are never served.
	Clear(ctx context.Context)
	// Stats returns hit/miss counters.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the in-process implementation of Cache.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// DefaultCleanupInterval is the janitor period for callers with no reason
// to tune it. It is independent of any entry TTL.
const DefaultCleanupInterval = time.Minute

// NewMemory creates an in-memory cache. When cleanupInterval is positive a
// background goroutine evicts expired entries on that period; call Stop to
// end it.
func NewMemory(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired() {
		c.stats.Misses++
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.stats.Hits++
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return e.value, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, expiration: time.Now().Add(ttl)}
	c.stats.Sets++
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop ends the cleanup goroutine.
func (c *memoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
