package logistics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func testRequest() Request {
	origin, _ := valueobject.NewAddress("1 Harbour Rd", "Shenzhen", "518000", "CN")
	dest, _ := valueobject.NewAddress("500 Market St", "San Francisco", "94105", "US", valueobject.WithState("CA"))
	return Request{
		Origin:      origin,
		Destination: dest,
		Packages: []Package{{
			WeightKg:      decimal.RequireFromString("1.2"),
			Quantity:      1,
			DeclaredValue: valueobject.MoneyFromFloat(120, valueobject.USD),
		}},
		ShipmentValue: valueobject.MoneyFromFloat(120, valueobject.USD),
	}
}

func TestRequest_Validate(t *testing.T) {
	assert.Empty(t, testRequest().Validate())

	req := testRequest()
	req.Packages = nil
	req.DeliveryMode = "FOB"
	req.Destination.CountryCode = "usa"
	errs := req.Validate()
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, shared.CategoryValidation, e.Category)
	}

	req = testRequest()
	req.Packages[0].WeightKg = decimal.Zero
	errs = req.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "packages[0].weightKg", errs[0].Field)
}

func TestPackage_ChargeableWeight(t *testing.T) {
	p := Package{
		WeightKg: decimal.RequireFromString("1"),
		Quantity: 2,
		Dimensions: &Dimensions{
			Length: decimal.NewFromInt(40), Width: decimal.NewFromInt(30), Height: decimal.NewFromInt(20),
		},
	}
	// volumetric 24000/5000 = 4.8 kg per parcel
	assert.Equal(t, "9.6", p.ChargeableWeight().String())

	p.Dimensions = nil
	assert.Equal(t, "2", p.ChargeableWeight().String())
}

func TestFingerprint(t *testing.T) {
	req := testRequest()
	a := Fingerprint(req, Options{IncludeProviders: []string{"b", "a"}})
	b := Fingerprint(req, Options{IncludeProviders: []string{"a", "b"}, SortBy: SortByTime, MaxResults: 3})
	assert.Equal(t, a, b, "selection order and post-filters do not change the key")

	c := Fingerprint(req.WithDeliveryMode(shared.DeliveryModeDDP), Options{IncludeProviders: []string{"a", "b"}})
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "quotes_")
}

func TestOptions_Eligible(t *testing.T) {
	o := Options{IncludeProviders: []string{"dhl", "ups"}, ExcludeProviders: []string{"ups"}}
	assert.True(t, o.Eligible("dhl"))
	assert.False(t, o.Eligible("ups"))
	assert.False(t, o.Eligible("fedex"))
	assert.True(t, Options{}.Eligible("fedex"))
	assert.True(t, Options{}.CacheEnabled())
}

func TestQuote_IsExpired(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	q := Quote{ValidUntil: now.Add(time.Minute)}
	assert.False(t, q.IsExpired(now))
	assert.True(t, q.IsExpired(now.Add(time.Minute)))
	assert.False(t, Quote{}.IsExpired(now))
}

func TestAsProviderError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, CodeTimeout, true},
		{"rate limited", fmt.Errorf("%w: HTTP 429", ErrProviderRateLimited), CodeRateLimited, true},
		{"outage", fmt.Errorf("%w: HTTP 503", ErrProviderUnavailable), CodeUnavailable, true},
		{"bad request", fmt.Errorf("%w: HTTP 400", ErrProviderRequestFailed), CodeRequestFailed, false},
		{"auth", ErrProviderAuthFailed, CodeAuthFailed, false},
		{"unknown", errors.New("boom"), CodeRequestFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := AsProviderError("dhl", tt.err)
			assert.Equal(t, "dhl", pe.ProviderID)
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(pe))
			assert.ErrorIs(t, pe, tt.err)
		})
	}

	assert.Nil(t, AsProviderError("dhl", nil))
	assert.False(t, IsRetryable(ErrInvalidRequest))

	ce := ToCalculationError("ups", fmt.Errorf("%w: HTTP 503", ErrProviderUnavailable))
	assert.Equal(t, shared.CategoryProvider, ce.Category)
	assert.Equal(t, "ups", ce.ProviderID)
	assert.Equal(t, CodeUnavailable, ce.Code)
}

func TestProviderPerformance(t *testing.T) {
	now := time.Now()
	p := NewProviderPerformance("dhl")
	assert.InDelta(t, NeutralReliability, p.Reliability(), 1e-9)

	p.RecordQuoteFailure(now)
	// success 0.5 → 0.4; reliability 0.4·0.4 + 0.4·0.5 + 0.2·0.5
	assert.InDelta(t, 0.4, p.SuccessRate, 1e-9)
	assert.InDelta(t, 0.46, p.Reliability(), 1e-9)

	p.RecordShipment(decimal.NewFromInt(20), 5, now)
	p.RecordShipment(decimal.NewFromInt(30), 10, now)
	assert.Equal(t, "22", p.AverageCost.String())
	assert.InDelta(t, 6.0, p.AverageDays, 1e-9)
	assert.Equal(t, 2, p.Shipments)

	p.RecordDelivery(true, 2, now)
	assert.InDelta(t, 0.6, p.OnTimeRate, 1e-9)
	assert.InDelta(t, 0.6, p.Satisfaction, 1e-9)
}
