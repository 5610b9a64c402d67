package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCleanupInterval is the sweep period used by the factory
	DefaultCleanupInterval = 30 * time.Second
	defaultTTL             = 15 * time.Minute
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired at now
func (e *cacheEntry[V]) isExpired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Stats reports cache effectiveness
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// TTLCache is a mutex-guarded, time-boxed map keyed by content fingerprints.
// Expired entries are treated as absent and removed lazily on read, plus
// periodically by a background sweep when one is enabled.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	name    string

	cleanupInterval time.Duration
	stopCh          chan struct{}
	closeOnce       sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// TTLCacheOption is a functional option for configuring the cache
type TTLCacheOption func(*ttlCacheOptions)

type ttlCacheOptions struct {
	ttl             time.Duration
	now             func() time.Time
	logger          *zap.Logger
	name            string
	cleanupInterval time.Duration
}

// WithTTL sets the default entry lifetime
func WithTTL(ttl time.Duration) TTLCacheOption {
	return func(o *ttlCacheOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) TTLCacheOption {
	return func(o *ttlCacheOptions) {
		o.now = now
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) TTLCacheOption {
	return func(o *ttlCacheOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName labels log entries emitted by the cache
func WithName(name string) TTLCacheOption {
	return func(o *ttlCacheOptions) {
		o.name = name
	}
}

// WithCleanupInterval enables a background sweep of expired entries
func WithCleanupInterval(interval time.Duration) TTLCacheOption {
	return func(o *ttlCacheOptions) {
		o.cleanupInterval = interval
	}
}

// NewTTLCache creates a new cache. Call Close to stop the background sweep.
func NewTTLCache[V any](opts ...TTLCacheOption) *TTLCache[V] {
	o := ttlCacheOptions{
		ttl:    defaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
		name:   "ttl",
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTLCache[V]{
		entries:         make(map[string]*cacheEntry[V]),
		ttl:             o.ttl,
		now:             o.now,
		logger:          o.logger.With(zap.String("cache", o.name)),
		name:            o.name,
		cleanupInterval: o.cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	if c.cleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Get returns the value for key if present and not expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.isExpired(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		c.logger.Debug("cache miss", zap.String("key", key))
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", zap.String("key", key))
	return entry.value, true
}

// Set stores value under key with the default TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[key] = &cacheEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters
func (c *TTLCache[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.Len()}
}

// Purge removes every expired entry and returns how many were removed
func (c *TTLCache[V]) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep
func (c *TTLCache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

func (c *TTLCache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 {
				c.logger.Debug("purged expired cache entries", zap.Int("count", n))
			}
		}
	}
}
