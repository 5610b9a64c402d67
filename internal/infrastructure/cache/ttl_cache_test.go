package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTTLCache_GetSet(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[string](WithTTL(time.Minute), WithClock(clock.Now), WithCacheLogger(zaptest.NewLogger(t)))
	defer c.Close()

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestTTLCache_ExpiredEntriesAreAbsent(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[int](WithTTL(time.Minute), WithClock(clock.Now))
	defer c.Close()

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Hour)

	clock.Advance(time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok, "entry at its expiry instant must be treated as absent")
	assert.Equal(t, 1, c.Len(), "expired entry is evicted lazily on read")

	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_Purge(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[int](WithTTL(time.Second), WithClock(clock.Now))
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.SetWithTTL("long", 9, time.Hour)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 5, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int](WithCleanupInterval(time.Millisecond))
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, i)
			c.Get(key)
			c.Delete(key)
		}(i)
	}
	wg.Wait()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close(), "close is idempotent")
}
