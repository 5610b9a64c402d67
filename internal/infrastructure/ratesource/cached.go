package ratesource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/cache"
)

// Ensure CachedSource implements ratepolicy.Source
var _ ratepolicy.Source = (*CachedSource)(nil)

// DefaultRateCacheTTL bounds how stale a cached rate lookup may be
const DefaultRateCacheTTL = 24 * time.Hour

// CachedSource memoizes lookups of another source for a fixed TTL.
// Not-found answers are not cached.
type CachedSource struct {
	next     ratepolicy.Source
	rates    *cache.TTLCache[[]ratepolicy.TaxRate]
	policies *cache.TTLCache[*ratepolicy.CompliancePolicy]
	fx       *cache.TTLCache[decimal.Decimal]
	logger   *zap.Logger
}

// NewCachedSource wraps next with a time-boxed cache
func NewCachedSource(next ratepolicy.Source, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultRateCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		next:     next,
		rates:    cache.NewTTLCache[[]ratepolicy.TaxRate](cache.WithTTL(ttl), cache.WithName("rates"), cache.WithCacheLogger(logger)),
		policies: cache.NewTTLCache[*ratepolicy.CompliancePolicy](cache.WithTTL(ttl), cache.WithName("policies"), cache.WithCacheLogger(logger)),
		fx:       cache.NewTTLCache[decimal.Decimal](cache.WithTTL(ttl), cache.WithName("fx"), cache.WithCacheLogger(logger)),
		logger:   logger,
	}
}

// GetTaxRates implements ratepolicy.Source
func (c *CachedSource) GetTaxRates(ctx context.Context, countryCode string, filter ratepolicy.RateFilter) ([]ratepolicy.TaxRate, error) {
	key := strings.ToUpper(fmt.Sprintf("%s|%s|%s", countryCode, filter.Kind, filter.Region))
	if rates, ok := c.rates.Get(key); ok {
		return rates, nil
	}
	rates, err := c.next.GetTaxRates(ctx, countryCode, filter)
	if err != nil {
		return nil, err
	}
	c.rates.Set(key, rates)
	return rates, nil
}

// GetCompliancePolicy implements ratepolicy.Source
func (c *CachedSource) GetCompliancePolicy(ctx context.Context, regime ratepolicy.RegimeType, countryCode string) (*ratepolicy.CompliancePolicy, error) {
	key := strings.ToUpper(string(regime) + "|" + countryCode)
	if p, ok := c.policies.Get(key); ok {
		copied := *p
		return &copied, nil
	}
	p, err := c.next.GetCompliancePolicy(ctx, regime, countryCode)
	if err != nil {
		return nil, err
	}
	c.policies.Set(key, p)
	copied := *p
	return &copied, nil
}

// ConvertCurrency caches the pair rate and applies it to amount
func (c *CachedSource) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error) {
	key := string(from) + "|" + string(to)
	if rate, ok := c.fx.Get(key); ok {
		return ratepolicy.Conversion{
			Amount: amount.Mul(rate).Round(conversionPrecision),
			From:   from,
			To:     to,
			Rate:   rate,
		}, nil
	}
	conv, err := c.next.ConvertCurrency(ctx, amount, from, to)
	if err != nil {
		return ratepolicy.Conversion{}, err
	}
	c.fx.Set(key, conv.Rate)
	return conv, nil
}

// Close releases the underlying caches
func (c *CachedSource) Close() error {
	c.rates.Close()
	c.policies.Close()
	c.fx.Close()
	return nil
}
