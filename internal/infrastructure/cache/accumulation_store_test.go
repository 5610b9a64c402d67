package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func testAccumulationKey(end time.Time) relief.AccumulationKey {
	return relief.AccumulationKey{
		Regime:    ratepolicy.RegimeSection321,
		Scope:     ratepolicy.ScopeRecipient,
		SubjectID: "buyer-1",
		Period:    "2026-03-02",
		PeriodEnd: end,
	}
}

func TestMemoryAccumulationStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := NewMemoryAccumulationStore().WithClock(func() time.Time { return now })
	key := testAccumulationKey(now.Add(15 * time.Hour))

	u, err := store.Usage(ctx, key, valueobject.USD)
	require.NoError(t, err)
	assert.True(t, u.Total.IsZero())
	assert.Equal(t, valueobject.USD, u.Total.Currency())
	assert.Zero(t, u.Shipments)

	u, err = store.Record(ctx, key, valueobject.MoneyFromFloat(300, valueobject.USD))
	require.NoError(t, err)
	u, err = store.Record(ctx, key, valueobject.MoneyFromFloat(250.5, valueobject.USD))
	require.NoError(t, err)
	assert.Equal(t, "550.50", u.Total.Amount().StringFixed(2))
	assert.Equal(t, 2, u.Shipments)

	got, err := store.Usage(ctx, key, valueobject.USD)
	require.NoError(t, err)
	assert.True(t, got.Total.Equals(u.Total))

	_, err = store.Record(ctx, key, valueobject.MoneyFromFloat(1, valueobject.EUR))
	assert.ErrorIs(t, err, valueobject.ErrCurrencyMismatch)

	now = now.Add(16 * time.Hour)
	got, err = store.Usage(ctx, key, valueobject.USD)
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero(), "counter expires with its period")
	assert.Equal(t, 0, store.Len())
}

func TestMemoryAccumulationStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := NewMemoryAccumulationStore().WithClock(func() time.Time { return now })

	ended := testAccumulationKey(now.Add(time.Hour))
	open := testAccumulationKey(now.Add(48 * time.Hour))
	open.Period = "2026-03-03"
	for _, k := range []relief.AccumulationKey{ended, open} {
		_, err := store.Record(ctx, k, valueobject.MoneyFromFloat(10, valueobject.USD))
		require.NoError(t, err)
	}

	n, err := store.PurgeExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())

	u, err := store.Usage(ctx, open, valueobject.USD)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Shipments)
}

func TestMemoryAccumulationStore_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccumulationStore()
	key := testAccumulationKey(time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Record(ctx, key, valueobject.MoneyFromFloat(10, valueobject.USD))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := store.Usage(ctx, key, valueobject.USD)
	require.NoError(t, err)
	assert.Equal(t, "500.00", u.Total.Amount().StringFixed(2))
	assert.Equal(t, 50, u.Shipments)
}
