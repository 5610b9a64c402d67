package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// DefaultAccumulationKeyPrefix namespaces relief counters
const DefaultAccumulationKeyPrefix = "xb:relief:"

// accumulationGrace keeps a counter readable shortly after its period ends
const accumulationGrace = time.Hour

const (
	fieldTotal     = "total"
	fieldShipments = "shipments"
)

// RedisAccumulationStore keeps relief usage counters in redis hashes.
// Each counter lives under prefix+key+currency and expires after its period.
type RedisAccumulationStore struct {
	client    redis.Cmdable
	keyPrefix string
}

var _ relief.AccumulationStore = (*RedisAccumulationStore)(nil)

// NewRedisAccumulationStore creates a store on an existing client
func NewRedisAccumulationStore(client redis.Cmdable, keyPrefix string) *RedisAccumulationStore {
	if keyPrefix == "" {
		keyPrefix = DefaultAccumulationKeyPrefix
	}
	return &RedisAccumulationStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisAccumulationStore) redisKey(key relief.AccumulationKey, cur valueobject.Currency) string {
	return s.keyPrefix + key.String() + ":" + cur.String()
}

// Usage reads the counter for key
func (s *RedisAccumulationStore) Usage(ctx context.Context, key relief.AccumulationKey, cur valueobject.Currency) (relief.Usage, error) {
	vals, err := s.client.HMGet(ctx, s.redisKey(key, cur), fieldTotal, fieldShipments).Result()
	if err != nil {
		return relief.Usage{}, fmt.Errorf("%w: %v", relief.ErrAccumulationUnavailable, err)
	}
	return decodeUsage(key, cur, vals)
}

// Record atomically adds amount to the counter for key
func (s *RedisAccumulationStore) Record(ctx context.Context, key relief.AccumulationKey, amount valueobject.Money) (relief.Usage, error) {
	rk := s.redisKey(key, amount.Currency())

	var total *redis.FloatCmd
	var shipments *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.HIncrByFloat(ctx, rk, fieldTotal, amount.Amount().InexactFloat64())
		shipments = pipe.HIncrBy(ctx, rk, fieldShipments, 1)
		if !key.PeriodEnd.IsZero() {
			pipe.ExpireAt(ctx, rk, key.PeriodEnd.Add(accumulationGrace))
		}
		return nil
	})
	if err != nil {
		return relief.Usage{}, fmt.Errorf("%w: %v", relief.ErrAccumulationUnavailable, err)
	}
	return relief.Usage{
		Key:       key,
		Total:     valueobject.FromDecimal(decimal.NewFromFloat(total.Val()).Round(2), amount.Currency()),
		Shipments: int(shipments.Val()),
	}, nil
}

func decodeUsage(key relief.AccumulationKey, cur valueobject.Currency, vals []any) (relief.Usage, error) {
	u := relief.Usage{Key: key, Total: valueobject.Zero(cur)}
	if len(vals) != 2 {
		return u, nil
	}
	if raw, ok := vals[0].(string); ok {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return relief.Usage{}, fmt.Errorf("accumulation %s: corrupt total %q", key, raw)
		}
		u.Total = valueobject.FromDecimal(amount.Round(2), cur)
	}
	if raw, ok := vals[1].(string); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return relief.Usage{}, errors.Join(fmt.Errorf("accumulation %s: corrupt shipment count", key), err)
		}
		u.Shipments = n
	}
	return u, nil
}
