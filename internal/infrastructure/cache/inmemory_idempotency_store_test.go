package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		ok, err := store.Claim(ctx, "booking-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Claim(ctx, "booking-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "held key should not be claimed twice")
	})

	t.Run("expired key can be claimed again", func(t *testing.T) {
		ok, err := store.Claim(ctx, "booking-2", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		now = now.Add(time.Minute)
		ok, err = store.Claim(ctx, "booking-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("released key can be claimed again", func(t *testing.T) {
		ok, err := store.Claim(ctx, "booking-3", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, store.Release(ctx, "booking-3"))
		ok, err = store.Claim(ctx, "booking-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.Claim(ctx, "short-1", time.Second)
	_, _ = store.Claim(ctx, "short-2", time.Second)
	_, _ = store.Claim(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Size())

	now = now.Add(time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())

	ok, err := store.Claim(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Claim(ctx, "same-key", time.Hour)
			results <- err == nil && ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one goroutine should claim the key")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
