package logistics

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/xborder/backend/internal/domain/logistics"
)

// PerformanceTracker is the mutex-guarded table of provider performance
// records shared by every concurrent quote and booking path.
type PerformanceTracker struct {
	mu      sync.RWMutex
	records map[string]*domain.ProviderPerformance
	now     func() time.Time
}

// NewPerformanceTracker creates an empty tracker
func NewPerformanceTracker(now func() time.Time) *PerformanceTracker {
	if now == nil {
		now = time.Now
	}
	return &PerformanceTracker{records: make(map[string]*domain.ProviderPerformance), now: now}
}

func (t *PerformanceTracker) update(providerID string, fn func(p *domain.ProviderPerformance, at time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.records[providerID]
	if !ok {
		p = domain.NewProviderPerformance(providerID)
		t.records[providerID] = p
	}
	fn(p, t.now())
}

// RecordQuoteSuccess marks a successful quote call
func (t *PerformanceTracker) RecordQuoteSuccess(providerID string) {
	t.update(providerID, (*domain.ProviderPerformance).RecordQuoteSuccess)
}

// RecordQuoteFailure marks a failed or timed-out quote call
func (t *PerformanceTracker) RecordQuoteFailure(providerID string) {
	t.update(providerID, (*domain.ProviderPerformance).RecordQuoteFailure)
}

// RecordShipment marks a booked shipment
func (t *PerformanceTracker) RecordShipment(providerID string, cost decimal.Decimal, days int) {
	t.update(providerID, func(p *domain.ProviderPerformance, at time.Time) {
		p.RecordShipment(cost, days, at)
	})
}

// RecordShipmentFailure marks a failed booking
func (t *PerformanceTracker) RecordShipmentFailure(providerID string) {
	t.update(providerID, (*domain.ProviderPerformance).RecordShipmentFailure)
}

// RecordDelivery marks a delivery outcome
func (t *PerformanceTracker) RecordDelivery(providerID string, onTime bool, satisfaction float64) {
	t.update(providerID, func(p *domain.ProviderPerformance, at time.Time) {
		p.RecordDelivery(onTime, satisfaction, at)
	})
}

// Reliability returns the composite reliability, neutral for unseen providers
func (t *PerformanceTracker) Reliability(providerID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.records[providerID]; ok {
		return p.Reliability()
	}
	return domain.NeutralReliability
}

// Snapshot returns a copy of a provider's record
func (t *PerformanceTracker) Snapshot(providerID string) domain.ProviderPerformance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.records[providerID]; ok {
		return *p
	}
	return *domain.NewProviderPerformance(providerID)
}

// All returns copies of every record ordered by provider id
func (t *PerformanceTracker) All() []domain.ProviderPerformance {
	t.mu.RLock()
	out := make([]domain.ProviderPerformance, 0, len(t.records))
	for _, p := range t.records {
		out = append(out, *p)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}
