package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/infrastructure/config"
)

// ErrBackendNotHandled is returned for backends served by another package (postgres)
var ErrBackendNotHandled = errors.New("cache: backend not handled by the store factory")

// StoreFactory creates the quote cache, accumulation and idempotency stores
// from configuration. Redis-backed stores share one lazily created client.
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger

	mu     sync.Mutex
	client *redis.Client
	dial   func(config.RedisConfig) (*redis.Client, error)
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRedisClient reuses an existing client instead of dialing one
func WithRedisClient(client *redis.Client) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.client = client
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg *config.Config, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cfg:    cfg,
		logger: zap.NewNop(),
		dial:   NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// redisClient returns the shared client, dialing it on first use
func (f *StoreFactory) redisClient() (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client, nil
	}
	client, err := f.dial(f.cfg.Redis)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Connected to Redis", zap.String("addr", f.cfg.Redis.Addr()))
	f.client = client
	return client, nil
}

// QuoteCache returns the shared quote cache, or nil when quotes are only
// cached in process
func (f *StoreFactory) QuoteCache() (*RedisQuoteCache, error) {
	switch f.cfg.Cache.Backend {
	case config.BackendRedis:
		client, err := f.redisClient()
		if err != nil {
			return nil, fmt.Errorf("quote cache: %w", err)
		}
		f.logger.Info("Using Redis quote cache")
		return NewRedisQuoteCache(client, f.cfg.Cache.KeyPrefix, f.logger), nil
	case "", config.BackendMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("quote cache: unknown backend %q", f.cfg.Cache.Backend)
	}
}

// AccumulationStore returns the memory or redis relief store. The postgres
// backend is built by the persistence package.
func (f *StoreFactory) AccumulationStore() (relief.AccumulationStore, error) {
	switch f.cfg.Accumulation.Backend {
	case config.BackendRedis:
		client, err := f.redisClient()
		if err != nil {
			return nil, fmt.Errorf("accumulation store: %w", err)
		}
		f.logger.Info("Using Redis accumulation store")
		return NewRedisAccumulationStore(client, f.cfg.Accumulation.KeyPrefix), nil
	case "", config.BackendMemory:
		f.logger.Warn("Using in-memory accumulation store. " +
			"Relief usage is lost on restart and not shared between instances.")
		return NewMemoryAccumulationStore(), nil
	case config.BackendPostgres:
		return nil, ErrBackendNotHandled
	default:
		return nil, fmt.Errorf("accumulation store: unknown backend %q", f.cfg.Accumulation.Backend)
	}
}

// IdempotencyStore follows the quote cache backend: redis when quotes are
// shared between instances, in-memory otherwise
func (f *StoreFactory) IdempotencyStore() (shared.IdempotencyStore, error) {
	if f.cfg.Cache.Backend == config.BackendRedis {
		client, err := f.redisClient()
		if err != nil {
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		return NewRedisIdempotencyStore(client, DefaultIdempotencyKeyPrefix), nil
	}
	return NewInMemoryIdempotencyStore(), nil
}

// Close closes the shared redis client
func (f *StoreFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
