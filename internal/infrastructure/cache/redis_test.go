package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/config"
)

// newTestRedis starts a throwaway redis container
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStores(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	t.Run("quote cache", func(t *testing.T) {
		qc := NewRedisQuoteCache(client, "", zaptest.NewLogger(t))

		_, ok, err := qc.GetQuotes(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		quotes := []logistics.Quote{{
			ID:          "q-1",
			ProviderID:  "acme",
			ServiceCode: "EXP",
			Pricing: logistics.Pricing{
				NetCost: valueobject.MoneyFromFloat(42.5, valueobject.USD),
				Total:   valueobject.MoneyFromFloat(42.5, valueobject.USD),
			},
		}}
		require.NoError(t, qc.SetQuotes(ctx, "k1", quotes, time.Minute))

		got, ok, err := qc.GetQuotes(ctx, "k1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "q-1", got[0].ID)
		assert.True(t, got[0].Pricing.NetCost.Equals(quotes[0].Pricing.NetCost))

		ttl, err := client.TTL(ctx, DefaultQuoteKeyPrefix+"k1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)

		require.NoError(t, client.Set(ctx, DefaultQuoteKeyPrefix+"bad", "{", time.Minute).Err())
		_, ok, err = qc.GetQuotes(ctx, "bad")
		require.NoError(t, err)
		assert.False(t, ok, "corrupt entries read as a miss")
	})

	t.Run("accumulation store", func(t *testing.T) {
		store := NewRedisAccumulationStore(client, "")
		key := testAccumulationKey(time.Now().Add(2 * time.Hour))

		u, err := store.Usage(ctx, key, valueobject.USD)
		require.NoError(t, err)
		assert.True(t, u.Total.IsZero())

		_, err = store.Record(ctx, key, valueobject.MoneyFromFloat(300.25, valueobject.USD))
		require.NoError(t, err)
		u, err = store.Record(ctx, key, valueobject.MoneyFromFloat(199.75, valueobject.USD))
		require.NoError(t, err)
		assert.Equal(t, "500.00", u.Total.Amount().StringFixed(2))
		assert.Equal(t, 2, u.Shipments)

		got, err := store.Usage(ctx, key, valueobject.USD)
		require.NoError(t, err)
		assert.Equal(t, "500.00", got.Total.Amount().StringFixed(2))
		assert.Equal(t, 2, got.Shipments)

		ttl, err := client.TTL(ctx, store.redisKey(key, valueobject.USD)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 2*time.Hour, "expires after the period plus grace")
	})

	t.Run("idempotency store", func(t *testing.T) {
		store := NewRedisIdempotencyStore(client, "")
		ok, err := store.Claim(ctx, "booking-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Claim(ctx, "booking-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Release(ctx, "booking-1"))
		ok, err = store.Claim(ctx, "booking-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisAccumulationStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	store := NewRedisAccumulationStore(client, "")
	key := testAccumulationKey(time.Now().Add(time.Hour))

	_, err := store.Usage(context.Background(), key, valueobject.USD)
	assert.ErrorIs(t, err, relief.ErrAccumulationUnavailable)

	_, err = store.Record(context.Background(), key, valueobject.MoneyFromFloat(1, valueobject.USD))
	assert.ErrorIs(t, err, relief.ErrAccumulationUnavailable)
}

func TestStoreFactory(t *testing.T) {
	newCfg := func(cacheBackend, accBackend string) *config.Config {
		return &config.Config{
			Cache:        config.CacheConfig{Backend: cacheBackend},
			Accumulation: config.AccumulationConfig{Backend: accBackend},
		}
	}

	t.Run("memory backends", func(t *testing.T) {
		f := NewStoreFactory(newCfg(config.BackendMemory, config.BackendMemory), WithLogger(zaptest.NewLogger(t)))
		defer f.Close()

		qc, err := f.QuoteCache()
		require.NoError(t, err)
		assert.Nil(t, qc)

		acc, err := f.AccumulationStore()
		require.NoError(t, err)
		assert.IsType(t, &MemoryAccumulationStore{}, acc)

		idem, err := f.IdempotencyStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, idem)
		require.NoError(t, idem.Close())
	})

	t.Run("postgres is left to persistence", func(t *testing.T) {
		f := NewStoreFactory(newCfg(config.BackendMemory, config.BackendPostgres))
		_, err := f.AccumulationStore()
		assert.ErrorIs(t, err, ErrBackendNotHandled)
	})

	t.Run("redis dial failure surfaces", func(t *testing.T) {
		f := NewStoreFactory(newCfg(config.BackendRedis, config.BackendRedis))
		dials := 0
		f.dial = func(config.RedisConfig) (*redis.Client, error) {
			dials++
			return nil, errors.New("connection refused")
		}
		_, err := f.QuoteCache()
		assert.ErrorContains(t, err, "connection refused")
		_, err = f.AccumulationStore()
		assert.Error(t, err)
		assert.Equal(t, 2, dials)
	})

	t.Run("redis client is shared", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		f := NewStoreFactory(newCfg(config.BackendRedis, config.BackendRedis), WithRedisClient(client))
		defer f.Close()

		qc, err := f.QuoteCache()
		require.NoError(t, err)
		assert.NotNil(t, qc)
		acc, err := f.AccumulationStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisAccumulationStore{}, acc)
		idem, err := f.IdempotencyStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, idem)
	})
}
