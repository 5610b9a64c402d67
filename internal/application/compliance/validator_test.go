package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "github.com/xborder/backend/internal/domain/compliance"
	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	domaintax "github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/ratesource"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newTestValidator(t *testing.T, store relief.AccumulationStore) *ValidatorService {
	t.Helper()
	source := ratesource.NewStaticSource()
	opts := []relief.Option{relief.WithClock(func() time.Time { return fixedNow })}
	if store != nil {
		opts = append(opts, relief.WithAccumulationStore(store))
	}
	return NewValidatorService(source, relief.NewEvaluator(source, opts...),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func order(country string, mode shared.DeliveryMode, cur valueobject.Currency, items ...domaintax.OrderItem) domaintax.CalculationRequest {
	return domaintax.CalculationRequest{
		Items:        items,
		Destination:  domaintax.Destination{CountryCode: country, PostalCode: "10001"},
		Customer:     domaintax.Customer{ID: "cust-1"},
		SellerID:     "seller-1",
		Currency:     cur,
		DeliveryMode: mode,
	}
}

func line(name, hs, price string) domaintax.OrderItem {
	return domaintax.OrderItem{Name: name, HSCode: hs, UnitPrice: decimal.RequireFromString(price), Quantity: 1}
}

func TestValidateCompliance_USWithinDeMinimis(t *testing.T) {
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("US", shared.DeliveryModeDDP, valueobject.USD, line("Lamp", "9405", "250")))

	require.True(t, v.Success)
	check, ok := v.Check(ratepolicy.RegimeSection321)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPass, check.Status)
	assert.Equal(t, "800.00 USD", check.Threshold.String())

	ioss, _ := v.Check(ratepolicy.RegimeIOSS)
	assert.Equal(t, domain.StatusNotApplicable, ioss.Status)

	// PASS + two NOT_APPLICABLE
	assert.Equal(t, 10, v.Risk.Score)
	assert.Equal(t, domain.RiskLow, v.Risk.Level)
	assert.Equal(t, domain.LevelFull, v.Level)
	assert.True(t, v.RequiresDocument(domain.DocCommercialInvoice))
	assert.True(t, v.RequiresDocument(domain.DocPackingList))
	assert.True(t, v.RequiresDocument(domain.DocReliefFiling))
	assert.False(t, v.RequiresDocument(domain.DocCertificateOfOrigin))
}

func TestValidateCompliance_OverThresholdIsPartial(t *testing.T) {
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("US", shared.DeliveryModeDDP, valueobject.USD, line("Camera", "8525", "3000")))

	check, _ := v.Check(ratepolicy.RegimeSection321)
	assert.Equal(t, domain.StatusWarning, check.Status)
	assert.Contains(t, check.Message, "exceeds")

	// WARNING 15 + NA 5 + NA 5 + high value 20
	assert.Equal(t, 45, v.Risk.Score)
	assert.Equal(t, domain.RiskMedium, v.Risk.Level)
	assert.Equal(t, domain.LevelPartial, v.Level)
	assert.True(t, v.RequiresDocument(domain.DocCertificateOfOrigin))
	assert.False(t, v.RequiresDocument(domain.DocReliefFiling))
}

func TestValidateCompliance_ProhibitedItemsFail(t *testing.T) {
	wine := line("Wine", "2204.21", "40")
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("DE", shared.DeliveryModeDDP, valueobject.EUR, wine))

	check, _ := v.Check(ratepolicy.RegimeIOSS)
	assert.Equal(t, domain.StatusFail, check.Status)
	assert.Equal(t, []string{"Wine"}, check.Details)
	assert.Equal(t, domain.LevelNonCompliant, v.Level)
	require.NotEmpty(t, v.Recommendations)
	assert.Equal(t, "HIGH", v.Recommendations[0].Priority)
}

func TestValidateCompliance_ConvertsToRegimeCurrency(t *testing.T) {
	// 100 USD at 0.92 EUR per USD
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("FR", shared.DeliveryModeDDP, valueobject.USD, line("Scarf", "6214", "100")))

	check, _ := v.Check(ratepolicy.RegimeIOSS)
	assert.Equal(t, domain.StatusPass, check.Status)
	require.NotNil(t, check.OrderValue)
	assert.Equal(t, "92.00 EUR", check.OrderValue.String())
	assert.Equal(t, "0.92", check.ExchangeRate)
}

func TestValidateCompliance_DAPUnderCheckoutRegimeWarns(t *testing.T) {
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("GB", shared.DeliveryModeDAP, valueobject.GBP, line("Mug", "6912", "20")))

	check, _ := v.Check(ratepolicy.RegimeUKLowValue)
	assert.Equal(t, domain.StatusWarning, check.Status)
	assert.Equal(t, domain.LevelPartial, v.Level)
}

func TestValidateCompliance_DailyAccumulation(t *testing.T) {
	store := &fixedUsageStore{total: valueobject.MustMoney(decimal.NewFromInt(600), valueobject.USD)}
	v := newTestValidator(t, store).ValidateCompliance(context.Background(),
		order("US", shared.DeliveryModeDDP, valueobject.USD, line("Drone", "8806", "300")))

	check, _ := v.Check(ratepolicy.RegimeSection321)
	assert.Equal(t, domain.StatusFail, check.Status)
	assert.Equal(t, "2026-10-16", check.Period)
	require.NotNil(t, check.Usage)
	assert.Equal(t, "600.00 USD", check.Usage.String())
	assert.Equal(t, domain.LevelNonCompliant, v.Level)
}

func TestValidateCompliance_RiskFactors(t *testing.T) {
	battery := line("Battery pack", "", "3200")
	battery.Dangerous = true
	knife := line("Knife", "", "100")
	knife.Restricted = true

	v := newTestValidator(t, nil).ValidateCompliance(context.Background(),
		order("JP", shared.DeliveryModeDDP, valueobject.USD, battery, knife))

	// 3×NA 15 + high value 20 + dangerous 15 + restricted 10 + missing HS 10
	assert.Equal(t, 70, v.Risk.Score)
	assert.Equal(t, domain.RiskHigh, v.Risk.Level)
	assert.Equal(t, domain.LevelPartial, v.Level)
	assert.True(t, v.RequiresDocument(domain.DocDangerousGoods))
}

func TestValidateCompliance_BusinessEORI(t *testing.T) {
	req := order("NL", shared.DeliveryModeDDP, valueobject.EUR, line("Tool", "8205", "50"))
	req.Customer.Type = domaintax.CustomerBusiness

	v := newTestValidator(t, nil).ValidateCompliance(context.Background(), req)
	assert.True(t, v.RequiresDocument(domain.DocEORI))

	req.Customer.EORINumber = "NL123456789"
	v = newTestValidator(t, nil).ValidateCompliance(context.Background(), req)
	assert.False(t, v.RequiresDocument(domain.DocEORI))
}

func TestValidateCompliance_InvalidRequest(t *testing.T) {
	v := newTestValidator(t, nil).ValidateCompliance(context.Background(), domaintax.CalculationRequest{})

	assert.False(t, v.Success)
	assert.Equal(t, domain.LevelNonCompliant, v.Level)
	assert.Len(t, v.Errors, 2)
}

type fixedUsageStore struct {
	total valueobject.Money
}

func (s *fixedUsageStore) Usage(_ context.Context, key relief.AccumulationKey, cur valueobject.Currency) (relief.Usage, error) {
	if key.Regime == ratepolicy.RegimeSection321 {
		return relief.Usage{Key: key, Total: s.total, Shipments: 1}, nil
	}
	return relief.Usage{Key: key, Total: valueobject.Zero(cur)}, nil
}

func (s *fixedUsageStore) Record(_ context.Context, key relief.AccumulationKey, amount valueobject.Money) (relief.Usage, error) {
	return relief.Usage{Key: key, Total: amount}, nil
}
