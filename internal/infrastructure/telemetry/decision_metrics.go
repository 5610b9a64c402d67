package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DecisionMetrics records tax, quote and orchestration activity.
// A nil *DecisionMetrics is valid and records nothing.
type DecisionMetrics struct {
	taxCalculations   *Counter
	taxDuration       *Histogram
	providerFailures  *Counter
	providerRetries   *Counter
	quoteCache        *Counter
	fanoutDuration    *Histogram
	quotesReturned    *Counter
	integratedQuotes  *Counter
	complianceResults *Counter
}

// NewDecisionMetrics creates the decision instruments on meter
func NewDecisionMetrics(meter metric.Meter) (*DecisionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &DecisionMetrics{}
	var err error
	if m.taxCalculations, err = NewCounter(meter, "xb_tax_calculations_total", "Tax calculations performed", "{calculations}"); err != nil {
		return nil, err
	}
	if m.taxDuration, err = NewHistogram(meter, "xb_tax_calculation_duration_seconds", "Tax calculation latency", "s", DecisionDurationBuckets...); err != nil {
		return nil, err
	}
	if m.providerFailures, err = NewCounter(meter, "xb_provider_quote_failures_total", "Carrier calls that failed or timed out", "{failures}"); err != nil {
		return nil, err
	}
	if m.providerRetries, err = NewCounter(meter, "xb_provider_retries_total", "Carrier call retries", "{retries}"); err != nil {
		return nil, err
	}
	if m.quoteCache, err = NewCounter(meter, "xb_quote_cache_lookups_total", "Quote cache lookups by outcome", "{lookups}"); err != nil {
		return nil, err
	}
	if m.fanoutDuration, err = NewHistogram(meter, "xb_quote_fanout_duration_seconds", "Carrier fan-out latency", "s", DecisionDurationBuckets...); err != nil {
		return nil, err
	}
	if m.quotesReturned, err = NewCounter(meter, "xb_quotes_returned_total", "Quotes returned by carriers", "{quotes}"); err != nil {
		return nil, err
	}
	if m.integratedQuotes, err = NewCounter(meter, "xb_integrated_quote_requests_total", "Integrated quote requests", "{requests}"); err != nil {
		return nil, err
	}
	if m.complianceResults, err = NewCounter(meter, "xb_compliance_validations_total", "Compliance validations by level", "{validations}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTaxCalculation records one tax calculation
func (m *DecisionMetrics) RecordTaxCalculation(ctx context.Context, country string, fromCache, success bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrCountry.String(country), AttrFromCache.Bool(fromCache), AttrSuccess.Bool(success)}
	m.taxCalculations.Inc(ctx, attrs...)
	m.taxDuration.RecordDuration(ctx, d, attrs...)
}

// RecordProviderFailure records a failed or timed-out carrier call
func (m *DecisionMetrics) RecordProviderFailure(ctx context.Context, providerID, code string) {
	if m == nil {
		return
	}
	m.providerFailures.Inc(ctx, AttrProviderID.String(providerID), AttrErrorCode.String(code))
}

// RecordProviderRetry records a retried carrier call
func (m *DecisionMetrics) RecordProviderRetry(ctx context.Context, providerID string) {
	if m == nil {
		return
	}
	m.providerRetries.Inc(ctx, AttrProviderID.String(providerID))
}

// RecordQuoteCache records a quote cache lookup. outcome is hit, miss or shared.
func (m *DecisionMetrics) RecordQuoteCache(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.quoteCache.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordFanout records one carrier fan-out
func (m *DecisionMetrics) RecordFanout(ctx context.Context, d time.Duration, quotes int) {
	if m == nil {
		return
	}
	m.fanoutDuration.RecordDuration(ctx, d)
	m.quotesReturned.Add(ctx, int64(quotes))
}

// RecordIntegratedQuotes records an orchestrated request
func (m *DecisionMetrics) RecordIntegratedQuotes(ctx context.Context, mode string, success bool) {
	if m == nil {
		return
	}
	m.integratedQuotes.Inc(ctx, AttrDeliveryMode.String(mode), AttrSuccess.Bool(success))
}

// RecordCompliance records a compliance validation outcome
func (m *DecisionMetrics) RecordCompliance(ctx context.Context, country, level string) {
	if m == nil {
		return
	}
	m.complianceResults.Inc(ctx, AttrCountry.String(country), AttrOutcome.String(level))
}
