package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

type memoryEntry struct {
	entry    Entry
	storedAt time.Time
}

// MemoryCache is a process-local BadgeCache. Expired entries are never
// returned; they are dropped on access and by a periodic sweep.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// MemoryOption customizes a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// WithoutSweeper disables the background sweep goroutine; expiry still
// happens lazily on Get.
func WithoutSweeper() MemoryOption {
	return func(c *MemoryCache) { c.stopCh = nil }
}

func NewMemoryCache(ttl time.Duration, log logger.Logger, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		items:  make(map[string]memoryEntry),
		ttl:    ttl,
		now:    time.Now,
		logger: log,
		stopCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.stopCh != nil {
		go c.sweepLoop()
	}
	return c
}

func (c *MemoryCache) TTL() time.Duration { return c.ttl }

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		monitoring.RecordCacheOperation("get", "miss")
		return Entry{}, false
	}

	if c.expired(item, c.now()) {
		c.mu.Lock()
		// re-check: a concurrent Put may have refreshed the entry
		if cur, still := c.items[key]; still && c.expired(cur, c.now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		monitoring.RecordCacheOperation("get", "expired")
		return Entry{}, false
	}

	monitoring.RecordCacheOperation("get", "hit")
	return item.entry, true
}

func (c *MemoryCache) Put(_ context.Context, key string, e Entry) {
	c.mu.Lock()
	c.items[key] = memoryEntry{entry: e, storedAt: c.now()}
	n := len(c.items)
	c.mu.Unlock()
	monitoring.RecordCacheOperation("set", "success")
	monitoring.SetCacheEntries(n)
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, item := range c.items {
		if c.expired(item, now) {
			delete(c.items, key)
			removed++
		}
	}
	n := len(c.items)
	c.mu.Unlock()
	monitoring.SetCacheEntries(n)
	return removed
}

func (c *MemoryCache) HealthCheck(context.Context) error { return nil }

// Close stops the sweeper. The cache stays usable afterwards.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
		}
	})
	return nil
}

func (c *MemoryCache) expired(item memoryEntry, now time.Time) bool {
	return now.Sub(item.storedAt) >= c.ttl
}

func (c *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Swept expired badge cache entries", "removed", n)
			}
		case <-c.stopCh:
			return
		}
	}
}
