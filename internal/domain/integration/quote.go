package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

// Score weights
const (
	WeightCost        = 0.30
	WeightTime        = 0.25
	WeightCompliance  = 0.25
	WeightReliability = 0.20
)

// Compliance component values by tax compliance status
const (
	ComplianceScoreFull    = 100.0
	ComplianceScorePartial = 70.0
	ComplianceScoreNone    = 30.0
)

// Insurance pricing
var (
	InsuranceRate    = decimal.RequireFromString("0.01")
	InsuranceMinimum = decimal.RequireFromString("1.00")
)

// InsurancePremium is 1% of the product value with a 1.00 floor
func InsurancePremium(productValue valueobject.Money) valueobject.Money {
	premium := productValue.Amount().Mul(InsuranceRate).Round(2)
	if premium.LessThan(InsuranceMinimum) {
		premium = InsuranceMinimum
	}
	return valueobject.FromDecimal(premium, productValue.Currency())
}

// ComplianceScore maps a tax compliance status onto 0-100
func ComplianceScore(status tax.ComplianceStatus) float64 {
	switch status {
	case tax.ComplianceFull:
		return ComplianceScoreFull
	case tax.CompliancePartial:
		return ComplianceScorePartial
	default:
		return ComplianceScoreNone
	}
}

// CostBreakdown is the landed cost of one offer
type CostBreakdown struct {
	ProductValue valueobject.Money  `json:"productValue"`
	Shipping     valueobject.Money  `json:"shipping"`
	Taxes        valueobject.Money  `json:"taxes"`
	Insurance    *valueobject.Money `json:"insurance,omitempty"`
	Total        valueobject.Money  `json:"total"`
}

// Charges is everything on top of the product value
func (c CostBreakdown) Charges() decimal.Decimal {
	return c.Total.Amount().Sub(c.ProductValue.Amount())
}

// ComplianceTag summarizes the relief position of an offer
type ComplianceTag struct {
	Regime         ratepolicy.RegimeType `json:"regime,omitempty"`
	Status         tax.ComplianceStatus  `json:"status"`
	FullyCompliant bool                  `json:"fullyCompliant"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// Score holds the weighted components, each in [0, 100], higher is better
type Score struct {
	Cost        float64 `json:"cost"`
	Time        float64 `json:"time"`
	Compliance  float64 `json:"compliance"`
	Reliability float64 `json:"reliability"`
	Overall     float64 `json:"overall"`
}

// NewScore computes Overall from the components
func NewScore(cost, time, compliance, reliability float64) Score {
	overall := WeightCost*cost + WeightTime*time + WeightCompliance*compliance + WeightReliability*reliability
	return Score{
		Cost:        round2(cost),
		Time:        round2(time),
		Compliance:  round2(compliance),
		Reliability: round2(reliability),
		Overall:     round2(overall),
	}
}

func round2(f float64) float64 {
	d, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return d
}

// IntegratedQuote joins one carrier quote with the tax result of its delivery mode
type IntegratedQuote struct {
	ID            string                     `json:"id"`
	QuoteID       string                     `json:"quoteId"`
	ProviderID    string                     `json:"providerId"`
	ProviderName  string                     `json:"providerName"`
	ServiceCode   string                     `json:"serviceCode"`
	ServiceName   string                     `json:"serviceName"`
	ServiceClass  logistics.ServiceClass     `json:"serviceClass"`
	DeliveryMode  shared.DeliveryMode        `json:"deliveryMode"`
	Cost          CostBreakdown              `json:"cost"`
	Delivery      logistics.DeliveryEstimate `json:"delivery"`
	Compliance    ComplianceTag              `json:"compliance"`
	Features      []string                   `json:"features,omitempty"`
	Restrictions  []string                   `json:"restrictions,omitempty"`
	Score         Score                      `json:"score"`
	CalculationID string                     `json:"calculationId"`
	ValidUntil    time.Time                  `json:"validUntil"`
}
