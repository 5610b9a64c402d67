package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
)

// DefaultQuoteKeyPrefix namespaces quote entries
const DefaultQuoteKeyPrefix = "xb:quotes:"

// RedisQuoteCache is the shared second-level quote cache of the aggregator.
// Entries are JSON encoded and expire with the quote TTL.
type RedisQuoteCache struct {
	client    redis.Cmdable
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisQuoteCache creates a quote cache on an existing client
func NewRedisQuoteCache(client redis.Cmdable, keyPrefix string, logger *zap.Logger) *RedisQuoteCache {
	if keyPrefix == "" {
		keyPrefix = DefaultQuoteKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQuoteCache{client: client, keyPrefix: keyPrefix, logger: logger}
}

// GetQuotes returns the cached quotes for key
func (c *RedisQuoteCache) GetQuotes(ctx context.Context, key string) ([]logistics.Quote, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached quotes: %w", err)
	}

	var quotes []logistics.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		// A corrupt entry behaves like a miss and is overwritten by the next fan-out.
		c.logger.Warn("Discarding undecodable cached quotes", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return quotes, true, nil
}

// SetQuotes stores quotes under key for ttl
func (c *RedisQuoteCache) SetQuotes(ctx context.Context, key string, quotes []logistics.Quote, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("failed to encode quotes: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quotes: %w", err)
	}
	return nil
}
