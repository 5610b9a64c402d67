package logistics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Performance constants
const (
	// NeutralReliability is used when a provider has no history.
	NeutralReliability = 0.5
	// PerformanceSmoothing is the EMA weight of the newest observation.
	PerformanceSmoothing = 0.2
)

// ProviderPerformance is the rolling record of one provider.
// Rates are exponential moving averages in [0, 1].
type ProviderPerformance struct {
	ProviderID      string          `json:"providerId"`
	AverageCost     decimal.Decimal `json:"averageCost"`
	AverageDays     float64         `json:"averageDays"`
	OnTimeRate      float64         `json:"onTimeRate"`
	SuccessRate     float64         `json:"successRate"`
	Satisfaction    float64         `json:"satisfaction"`
	QuoteRequests   int             `json:"quoteRequests"`
	QuoteFailures   int             `json:"quoteFailures"`
	Shipments       int             `json:"shipments"`
	ShipmentFailure int             `json:"shipmentFailures"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewProviderPerformance starts a record at the neutral point
func NewProviderPerformance(providerID string) *ProviderPerformance {
	return &ProviderPerformance{
		ProviderID:   providerID,
		AverageCost:  decimal.Zero,
		OnTimeRate:   NeutralReliability,
		SuccessRate:  NeutralReliability,
		Satisfaction: NeutralReliability,
	}
}

// HasHistory reports whether any event was recorded
func (p *ProviderPerformance) HasHistory() bool {
	return p.QuoteRequests+p.Shipments+p.ShipmentFailure > 0
}

// Reliability is the 0.4·success + 0.4·on-time + 0.2·satisfaction composite
func (p *ProviderPerformance) Reliability() float64 {
	if !p.HasHistory() {
		return NeutralReliability
	}
	return 0.4*p.SuccessRate + 0.4*p.OnTimeRate + 0.2*p.Satisfaction
}

func ema(prev, sample float64) float64 {
	return (1-PerformanceSmoothing)*prev + PerformanceSmoothing*sample
}

// RecordQuoteSuccess folds a successful quote call into the record
func (p *ProviderPerformance) RecordQuoteSuccess(at time.Time) {
	p.QuoteRequests++
	p.SuccessRate = ema(p.SuccessRate, 1)
	p.UpdatedAt = at
}

// RecordQuoteFailure folds a failed or timed-out quote call into the record
func (p *ProviderPerformance) RecordQuoteFailure(at time.Time) {
	p.QuoteRequests++
	p.QuoteFailures++
	p.SuccessRate = ema(p.SuccessRate, 0)
	p.UpdatedAt = at
}

// RecordShipment folds a booked shipment into the record
func (p *ProviderPerformance) RecordShipment(cost decimal.Decimal, days int, at time.Time) {
	p.Shipments++
	p.SuccessRate = ema(p.SuccessRate, 1)
	if p.Shipments == 1 {
		p.AverageCost = cost
		p.AverageDays = float64(days)
	} else {
		w := decimal.NewFromFloat(PerformanceSmoothing)
		p.AverageCost = p.AverageCost.Mul(decimal.NewFromInt(1).Sub(w)).Add(cost.Mul(w)).Round(2)
		p.AverageDays = ema(p.AverageDays, float64(days))
	}
	p.UpdatedAt = at
}

// RecordShipmentFailure folds a failed booking into the record
func (p *ProviderPerformance) RecordShipmentFailure(at time.Time) {
	p.ShipmentFailure++
	p.SuccessRate = ema(p.SuccessRate, 0)
	p.UpdatedAt = at
}

// RecordDelivery folds a delivery outcome into the on-time and satisfaction rates
func (p *ProviderPerformance) RecordDelivery(onTime bool, satisfaction float64, at time.Time) {
	sample := 0.0
	if onTime {
		sample = 1
	}
	p.OnTimeRate = ema(p.OnTimeRate, sample)
	p.Satisfaction = ema(p.Satisfaction, min(max(satisfaction, 0), 1))
	p.UpdatedAt = at
}
