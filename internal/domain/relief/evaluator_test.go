package relief

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

type fakeSource struct {
	policies map[ratepolicy.RegimeType]ratepolicy.CompliancePolicy
	rates    map[valueobject.Currency]decimal.Decimal // units per USD
	failFX   bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		policies: map[ratepolicy.RegimeType]ratepolicy.CompliancePolicy{
			ratepolicy.RegimeSection321: {
				Type: ratepolicy.RegimeSection321, Countries: []string{"US"},
				Threshold: valueobject.MoneyFromFloat(800, valueobject.USD),
				Window:    ratepolicy.WindowDay, Scope: ratepolicy.ScopeRecipient,
				ExemptsDuty: true, CapsAccumulation: true, ExcludesRestricted: true,
			},
			ratepolicy.RegimeIOSS: {
				Type: ratepolicy.RegimeIOSS, Countries: []string{"DE", "FR"},
				Threshold: valueobject.MoneyFromFloat(150, valueobject.EUR),
				Window:    ratepolicy.WindowMonth, Scope: ratepolicy.ScopeSeller,
				ExemptsDuty: true, CollectsVATAtCheckout: true,
				ProhibitedHSPrefixes: []string{"2203", "24"},
			},
			ratepolicy.RegimeUKLowValue: {
				Type: ratepolicy.RegimeUKLowValue, Countries: []string{"GB"},
				Threshold: valueobject.MoneyFromFloat(135, valueobject.GBP),
				Window:    ratepolicy.WindowQuarter, Scope: ratepolicy.ScopeSeller,
				ExemptsDuty: true, CollectsVATAtCheckout: true,
			},
		},
		rates: map[valueobject.Currency]decimal.Decimal{
			valueobject.USD: decimal.NewFromInt(1),
			valueobject.EUR: decimal.RequireFromString("0.5"),
			valueobject.GBP: decimal.RequireFromString("0.8"),
		},
	}
}

func (f *fakeSource) GetCompliancePolicy(_ context.Context, regime ratepolicy.RegimeType, country string) (*ratepolicy.CompliancePolicy, error) {
	p, ok := f.policies[regime]
	if !ok || !p.CoversCountry(country) {
		return nil, ratepolicy.ErrPolicyNotFound
	}
	return &p, nil
}

func (f *fakeSource) ConvertCurrency(_ context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error) {
	if f.failFX {
		return ratepolicy.Conversion{}, ratepolicy.ErrCurrencyNotSupported
	}
	rate := f.rates[to].Div(f.rates[from])
	return ratepolicy.Conversion{Amount: amount.Mul(rate), From: from, To: to, Rate: rate}, nil
}

type memStore struct {
	mu     sync.Mutex
	totals map[string]valueobject.Money
	count  map[string]int
	err    error
}

func newMemStore() *memStore {
	return &memStore{totals: map[string]valueobject.Money{}, count: map[string]int{}}
}

func (m *memStore) Usage(_ context.Context, key AccumulationKey, cur valueobject.Currency) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Usage{}, m.err
	}
	total, ok := m.totals[key.String()]
	if !ok {
		total = valueobject.Zero(cur)
	}
	return Usage{Key: key, Total: total, Shipments: m.count[key.String()]}, nil
}

func (m *memStore) Record(_ context.Context, key AccumulationKey, amount valueobject.Money) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, ok := m.totals[key.String()]
	if !ok {
		total = valueobject.Zero(amount.Currency())
	}
	total, _ = total.Add(amount)
	m.totals[key.String()] = total
	m.count[key.String()]++
	return Usage{Key: key, Total: total, Shipments: m.count[key.String()]}, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
}

func TestEvaluator_Section321Threshold(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	tests := []struct {
		name       string
		value      float64
		applicable bool
	}{
		{"below threshold", 120, true},
		{"at threshold", 800, true},
		{"above threshold", 999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, errs := e.Evaluate(context.Background(), ratepolicy.RegimeSection321, Input{
				CountryCode: "US",
				OrderValue:  valueobject.MoneyFromFloat(tt.value, valueobject.USD),
			})
			assert.Empty(t, errs)
			assert.True(t, ev.InScope)
			assert.Equal(t, tt.applicable, ev.Applicable)
			if tt.applicable {
				assert.True(t, ev.ExemptedValue.Equals(ev.OrderValue))
			} else {
				assert.True(t, ev.ExemptedValue.IsZero())
				assert.True(t, ev.ExceedsBy().Equal(decimal.NewFromInt(199)))
			}
		})
	}
}

func TestEvaluator_ConvertsToRegimeCurrency(t *testing.T) {
	e := NewEvaluator(newFakeSource())

	// 280 USD = 140 EUR, within the 150 EUR threshold.
	ev, errs := e.Evaluate(context.Background(), ratepolicy.RegimeIOSS, Input{
		CountryCode: "DE",
		OrderValue:  valueobject.MoneyFromFloat(280, valueobject.USD),
	})
	require.Empty(t, errs)
	assert.True(t, ev.Applicable)
	assert.Equal(t, valueobject.EUR, ev.OrderValue.Currency())
	assert.Equal(t, "140.00", ev.OrderValue.Amount().StringFixed(2))
	assert.True(t, ev.ExchangeRate.Equal(decimal.RequireFromString("0.5")))
}

func TestEvaluator_ProhibitedItemsBlockRelief(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	ev, _ := e.Evaluate(context.Background(), ratepolicy.RegimeIOSS, Input{
		CountryCode: "FR",
		OrderValue:  valueobject.MoneyFromFloat(40, valueobject.EUR),
		Items: []ItemProfile{
			{Name: "Cigars", HSCode: "2402.10"},
			{Name: "Mug", HSCode: "6912.00"},
		},
	})
	assert.False(t, ev.Applicable)
	assert.Equal(t, []string{"Cigars"}, ev.ProhibitedItems)

	ev, _ = e.Evaluate(context.Background(), ratepolicy.RegimeSection321, Input{
		CountryCode: "US",
		OrderValue:  valueobject.MoneyFromFloat(40, valueobject.USD),
		Items:       []ItemProfile{{Name: "Steel pipe", Restricted: true}},
	})
	assert.False(t, ev.Applicable)
}

func TestEvaluator_OutOfScopeDestination(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	evals, errs := e.EvaluateAll(context.Background(), Input{
		CountryCode: "GB",
		OrderValue:  valueobject.MoneyFromFloat(50, valueobject.GBP),
	})
	require.Empty(t, errs)
	require.Len(t, evals, 3)
	assert.Equal(t, ratepolicy.RegimeSection321, evals[0].Regime)
	assert.False(t, evals[0].InScope)
	assert.False(t, evals[1].InScope)
	assert.True(t, evals[2].InScope)
	assert.True(t, evals[2].Applicable)
}

func TestEvaluator_ConversionFailureIsDataError(t *testing.T) {
	src := newFakeSource()
	src.failFX = true
	e := NewEvaluator(src)
	ev, errs := e.Evaluate(context.Background(), ratepolicy.RegimeUKLowValue, Input{
		CountryCode: "GB",
		OrderValue:  valueobject.MoneyFromFloat(50, valueobject.USD),
	})
	require.Len(t, errs, 1)
	assert.Equal(t, shared.CategoryData, errs[0].Category)
	assert.Equal(t, shared.CodeCurrencyConversion, errs[0].Code)
	assert.False(t, ev.Applicable)
}

func TestEvaluator_Accumulation(t *testing.T) {
	store := newMemStore()
	e := NewEvaluator(newFakeSource(), WithAccumulationStore(store), WithClock(fixedClock))
	in := Input{
		CountryCode: "US",
		OrderValue:  valueobject.MoneyFromFloat(500, valueobject.USD),
		RecipientID: "cust-1",
	}

	usages, err := e.RecordShipment(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "2026-05-14", usages[0].Key.Period)
	assert.Equal(t, 1, usages[0].Shipments)

	ev, errs := e.Evaluate(context.Background(), ratepolicy.RegimeSection321, in)
	require.Empty(t, errs)
	assert.True(t, ev.Applicable)
	require.NotNil(t, ev.Usage)
	assert.Equal(t, "1000.00", ev.ProjectedUsage.Amount().StringFixed(2))
	assert.True(t, ev.CapExceeded)
	assert.False(t, ev.NearThreshold)

	t.Run("other recipient unaffected", func(t *testing.T) {
		other := in
		other.RecipientID = "cust-2"
		ev, _ := e.Evaluate(context.Background(), ratepolicy.RegimeSection321, other)
		assert.False(t, ev.CapExceeded)
	})

	t.Run("store failure is recorded, not fatal", func(t *testing.T) {
		store.err = errors.New("down")
		defer func() { store.err = nil }()
		ev, errs := e.Evaluate(context.Background(), ratepolicy.RegimeSection321, in)
		require.Len(t, errs, 1)
		assert.Equal(t, shared.CodeAccumulationLookup, errs[0].Code)
		assert.True(t, ev.Applicable)
		assert.Nil(t, ev.Usage)
	})
}

func TestEvaluator_UsageStamp(t *testing.T) {
	store := newMemStore()
	now := fixedClock()
	e := NewEvaluator(newFakeSource(), WithAccumulationStore(store), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	in := Input{
		CountryCode: "US",
		OrderValue:  valueobject.MoneyFromFloat(500, valueobject.USD),
		RecipientID: "cust-1",
	}

	empty, err := e.UsageStamp(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "SECTION_321:RECIPIENT:cust-1:2026-05-14=0/0", empty)

	_, err = e.RecordShipment(ctx, in)
	require.NoError(t, err)
	recorded, err := e.UsageStamp(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, empty, recorded)

	now = now.Add(24 * time.Hour)
	nextDay, err := e.UsageStamp(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "SECTION_321:RECIPIENT:cust-1:2026-05-15=0/0", nextDay)

	t.Run("no subject reads no counter", func(t *testing.T) {
		anon := in
		anon.RecipientID = ""
		stamp, err := e.UsageStamp(ctx, anon)
		require.NoError(t, err)
		assert.Empty(t, stamp)
	})

	t.Run("store failure", func(t *testing.T) {
		store.err = errors.New("down")
		defer func() { store.err = nil }()
		_, err := e.UsageStamp(ctx, in)
		assert.ErrorIs(t, err, ErrAccumulationUnavailable)
	})

	t.Run("without a store", func(t *testing.T) {
		stamp, err := NewEvaluator(newFakeSource()).UsageStamp(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, stamp)
	})
}

func TestEvaluator_NearThreshold(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	ev, _ := e.Evaluate(context.Background(), ratepolicy.RegimeUKLowValue, Input{
		CountryCode: "GB",
		OrderValue:  valueobject.MoneyFromFloat(120, valueobject.GBP),
	})
	assert.True(t, ev.Applicable)
	assert.True(t, ev.NearThreshold)
}

func TestWindow_PeriodKey(t *testing.T) {
	at := time.Date(2026, 11, 3, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-11-03", ratepolicy.WindowDay.PeriodKey(at))
	assert.Equal(t, "2026-11", ratepolicy.WindowMonth.PeriodKey(at))
	assert.Equal(t, "2026-Q4", ratepolicy.WindowQuarter.PeriodKey(at))

	start, end := ratepolicy.WindowQuarter.Bounds(at)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)
}
