package ratesource

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func TestStaticSource_GetTaxRates(t *testing.T) {
	s := NewStaticSource()
	ctx := context.Background()

	t.Run("every EU member has standard VAT", func(t *testing.T) {
		for _, c := range shared.EUMemberStates() {
			rates, err := s.GetTaxRates(ctx, c, ratepolicy.RateFilter{Kind: ratepolicy.TaxKindVAT})
			require.NoError(t, err, c)
			require.NotEmpty(t, rates, c)
		}
	})

	t.Run("DE standard VAT is 19%", func(t *testing.T) {
		rates, err := s.GetTaxRates(ctx, "de", ratepolicy.RateFilter{Kind: ratepolicy.TaxKindVAT})
		require.NoError(t, err)
		var standard decimal.Decimal
		for _, r := range rates {
			if r.Class == ratepolicy.RateClassStandard {
				standard = r.Rate
			}
		}
		assert.Equal(t, "0.19", standard.String())
	})

	t.Run("region filter keeps only matching state", func(t *testing.T) {
		rates, err := s.GetTaxRates(ctx, "US", ratepolicy.RateFilter{Kind: ratepolicy.TaxKindConsumptionTax, Region: "CA"})
		require.NoError(t, err)
		require.Len(t, rates, 1)
		assert.Equal(t, "0.0725", rates[0].Rate.String())
	})

	t.Run("unknown country", func(t *testing.T) {
		_, err := s.GetTaxRates(ctx, "ZZ", ratepolicy.RateFilter{})
		assert.ErrorIs(t, err, ratepolicy.ErrRatesNotFound)
	})
}

func TestStaticSource_GetCompliancePolicy(t *testing.T) {
	s := NewStaticSource()
	ctx := context.Background()

	tests := []struct {
		regime    ratepolicy.RegimeType
		country   string
		threshold string
		cur       valueobject.Currency
		window    ratepolicy.Window
	}{
		{ratepolicy.RegimeSection321, "US", "800", valueobject.USD, ratepolicy.WindowDay},
		{ratepolicy.RegimeIOSS, "FR", "150", valueobject.EUR, ratepolicy.WindowMonth},
		{ratepolicy.RegimeUKLowValue, "GB", "135", valueobject.GBP, ratepolicy.WindowQuarter},
	}
	for _, tt := range tests {
		t.Run(string(tt.regime), func(t *testing.T) {
			p, err := s.GetCompliancePolicy(ctx, tt.regime, tt.country)
			require.NoError(t, err)
			assert.Equal(t, tt.threshold, p.Threshold.Amount().String())
			assert.Equal(t, tt.cur, p.Threshold.Currency())
			assert.Equal(t, tt.window, p.Window)
		})
	}

	_, err := s.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "US")
	assert.ErrorIs(t, err, ratepolicy.ErrPolicyNotFound)
}

func TestStaticSource_ConvertCurrency(t *testing.T) {
	s := NewStaticSource(WithExchangeRate(valueobject.EUR, decimal.RequireFromString("0.5")))
	ctx := context.Background()

	conv, err := s.ConvertCurrency(ctx, decimal.NewFromInt(100), valueobject.USD, valueobject.EUR)
	require.NoError(t, err)
	assert.Equal(t, "50", conv.Amount.String())
	assert.Equal(t, "0.5", conv.Rate.String())

	same, err := s.ConvertCurrency(ctx, decimal.NewFromInt(7), valueobject.GBP, valueobject.GBP)
	require.NoError(t, err)
	assert.Equal(t, "7", same.Amount.String())

	_, err = s.ConvertCurrency(ctx, decimal.NewFromInt(1), valueobject.USD, "CHF")
	assert.ErrorIs(t, err, ratepolicy.ErrCurrencyNotSupported)
}

type countingSource struct {
	ratepolicy.Source
	rateCalls   atomic.Int32
	policyCalls atomic.Int32
	fxCalls     atomic.Int32
}

func (c *countingSource) GetTaxRates(ctx context.Context, country string, f ratepolicy.RateFilter) ([]ratepolicy.TaxRate, error) {
	c.rateCalls.Add(1)
	return c.Source.GetTaxRates(ctx, country, f)
}

func (c *countingSource) GetCompliancePolicy(ctx context.Context, r ratepolicy.RegimeType, country string) (*ratepolicy.CompliancePolicy, error) {
	c.policyCalls.Add(1)
	return c.Source.GetCompliancePolicy(ctx, r, country)
}

func (c *countingSource) ConvertCurrency(ctx context.Context, a decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error) {
	c.fxCalls.Add(1)
	return c.Source.ConvertCurrency(ctx, a, from, to)
}

func TestCachedSource(t *testing.T) {
	inner := &countingSource{Source: NewStaticSource()}
	c := NewCachedSource(inner, 0, zaptest.NewLogger(t))
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetTaxRates(ctx, "DE", ratepolicy.RateFilter{Kind: ratepolicy.TaxKindVAT})
		require.NoError(t, err)
		_, err = c.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "DE")
		require.NoError(t, err)
		conv, err := c.ConvertCurrency(ctx, decimal.NewFromInt(100), valueobject.USD, valueobject.EUR)
		require.NoError(t, err)
		assert.Equal(t, "92", conv.Amount.String())
	}
	assert.Equal(t, int32(1), inner.rateCalls.Load())
	assert.Equal(t, int32(1), inner.policyCalls.Load())
	assert.Equal(t, int32(1), inner.fxCalls.Load())

	t.Run("not found is not cached", func(t *testing.T) {
		_, err := c.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "US")
		assert.ErrorIs(t, err, ratepolicy.ErrPolicyNotFound)
		_, err = c.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "US")
		assert.ErrorIs(t, err, ratepolicy.ErrPolicyNotFound)
		assert.Equal(t, int32(3), inner.policyCalls.Load())
	})

	t.Run("cached policy is a copy", func(t *testing.T) {
		p, err := c.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "DE")
		require.NoError(t, err)
		p.Name = "mutated"
		again, _ := c.GetCompliancePolicy(ctx, ratepolicy.RegimeIOSS, "DE")
		assert.NotEqual(t, "mutated", again.Name)
	})
}
