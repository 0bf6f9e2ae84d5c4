package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// AutoSwapCache serves from a fallback cache (normally a MemoryCache) and
// keeps dialing Valkey in the background. Once a dial succeeds, every later
// call goes to Valkey and the fallback is closed.
type AutoSwapCache struct {
	mu       sync.RWMutex
	current  BadgeCache
	fallback BadgeCache
	swapped  bool
	logger   logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewAutoSwapCache starts with fallback and retries dial every interval
// until it succeeds or Close is called.
func NewAutoSwapCache(
	fallback BadgeCache,
	log logger.Logger,
	interval time.Duration,
	dial func() (BadgeCache, error),
) *AutoSwapCache {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	a := &AutoSwapCache{
		current:  fallback,
		fallback: fallback,
		logger:   log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				real, err := dial()
				if err != nil {
					a.logger.Warn("Valkey connection attempt failed; will retry", "error", err)
					continue
				}
				a.mu.Lock()
				a.current = real
				a.swapped = true
				a.mu.Unlock()
				_ = a.fallback.Close()
				a.logger.Info("Valkey connection established; switched from in-memory to shared badge cache")
				return
			}
		}
	}()

	return a
}

// NewAutoSwapValkey upgrades from an in-memory cache to Valkey once the
// configured nodes answer.
func NewAutoSwapValkey(opts ValkeyOptions, log logger.Logger, fallback BadgeCache) *AutoSwapCache {
	return NewAutoSwapCache(fallback, log, 5*time.Second, func() (BadgeCache, error) {
		return NewValkeyCache(opts, log)
	})
}

// Swapped reports whether the shared backend is active.
func (a *AutoSwapCache) Swapped() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.swapped
}

func (a *AutoSwapCache) active() BadgeCache {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *AutoSwapCache) Get(ctx context.Context, key string) (Entry, bool) {
	return a.active().Get(ctx, key)
}

func (a *AutoSwapCache) Put(ctx context.Context, key string, e Entry) {
	a.active().Put(ctx, key, e)
}

func (a *AutoSwapCache) Len() int { return a.active().Len() }

func (a *AutoSwapCache) HealthCheck(ctx context.Context) error {
	return a.active().HealthCheck(ctx)
}

// Close stops the background dialer and closes the active cache.
func (a *AutoSwapCache) Close() error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	<-a.done
	return a.active().Close()
}
