package integration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

func sampleRequest() Request {
	origin, _ := valueobject.NewAddress("1 Harbour Rd", "Shenzhen", "518000", "CN")
	dest, _ := valueobject.NewAddress("Hauptstr. 1", "Berlin", "10115", "DE")
	return Request{
		Items: []tax.OrderItem{
			{Name: "Shirt", UnitPrice: decimal.NewFromInt(20), Quantity: 2, HSCode: "6109.10", WeightKg: decimal.RequireFromString("0.3")},
			{Name: "Cap", UnitPrice: decimal.NewFromInt(15), Quantity: 1},
		},
		Currency:    valueobject.EUR,
		Origin:      origin,
		Destination: dest,
	}
}

func TestRequest_ShipmentRequest(t *testing.T) {
	req := sampleRequest()
	ship := req.ShipmentRequest()

	require.Len(t, ship.Packages, 1)
	// 2 × 0.3 kg plus one unweighted item at the default
	assert.Equal(t, "1.1", ship.Packages[0].WeightKg.String())
	assert.Equal(t, "6109.10", ship.Packages[0].HSCode)
	assert.Equal(t, "55.00 EUR", ship.ShipmentValue.String())
	assert.Equal(t, valueobject.EUR, ship.QuoteCurrency())
	assert.Empty(t, ship.DeliveryMode)

	pinned := req.WithDeliveryMode(shared.DeliveryModeDDP)
	assert.Equal(t, shared.DeliveryModeDDP, pinned.ShipmentRequest().DeliveryMode)
	assert.Equal(t, []shared.DeliveryMode{shared.DeliveryModeDDP}, pinned.Options.Modes())
	assert.Equal(t, shared.AllDeliveryModes(), req.Options.Modes())
}

func TestRequest_TaxRequest(t *testing.T) {
	req := sampleRequest()
	noCache := false
	req.Options.UseCache = &noCache

	tr := req.TaxRequest(shared.DeliveryModeDAP)
	assert.Equal(t, "DE", tr.Destination.CountryCode)
	assert.Equal(t, "10115", tr.Destination.PostalCode)
	assert.Equal(t, shared.DeliveryModeDAP, tr.DeliveryMode)
	assert.False(t, tr.Options.UseCache)
	assert.True(t, tr.Options.IncludeBreakdown)
}

func TestRequest_Validate(t *testing.T) {
	assert.Empty(t, sampleRequest().Validate())

	req := sampleRequest()
	req.Destination.CountryCode = "Germany"
	req.Options.DeliveryMode = "EXW"
	errs := req.Validate()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"destination.countryCode", "deliveryMode"}, fields)
}

func TestNewScore(t *testing.T) {
	s := NewScore(90, 80, 100, 50)
	// 27 + 20 + 25 + 10
	assert.InDelta(t, 82, s.Overall, 1e-9)
	assert.InDelta(t, ComplianceScorePartial, ComplianceScore(tax.CompliancePartial), 1e-9)
	assert.InDelta(t, ComplianceScoreNone, ComplianceScore(""), 1e-9)
}

func TestRank_StableOnTies(t *testing.T) {
	quotes := []IntegratedQuote{
		{ServiceCode: "A", Score: Score{Overall: 70}},
		{ServiceCode: "B", Score: Score{Overall: 80}},
		{ServiceCode: "C", Score: Score{Overall: 70}},
	}
	Rank(quotes)
	assert.Equal(t, "B", quotes[0].ServiceCode)
	assert.Equal(t, "A", quotes[1].ServiceCode)
	assert.Equal(t, "C", quotes[2].ServiceCode)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Zero(t, a.TotalQuotes)
	assert.Nil(t, a.CostRange)
	assert.Empty(t, Recommend(a, nil))
}
