// Package integration implements the Integration Orchestrator: it joins tax
// results and carrier quotes into ranked landed-cost offers.
package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/xborder/backend/internal/domain/integration"
	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	domaintax "github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// TaxCalculator prices import charges for one delivery mode
type TaxCalculator interface {
	CalculateTax(ctx context.Context, req domaintax.CalculationRequest) *domaintax.CalculationResult
}

// QuoteAggregator returns merged carrier quotes and provider reliability
type QuoteAggregator interface {
	GetBestQuotes(ctx context.Context, req logistics.Request, opts logistics.Options) *logistics.BestQuotes
	Reliability(providerID string) float64
}

// Option configures an OrchestratorService
type Option func(*OrchestratorService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *OrchestratorService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *OrchestratorService) {
		s.now = now
	}
}

// WithMetrics enables decision metrics
func WithMetrics(m *telemetry.DecisionMetrics) Option {
	return func(s *OrchestratorService) {
		s.metrics = m
	}
}

// OrchestratorService is the top-level decisioning entry point
type OrchestratorService struct {
	tax     TaxCalculator
	quotes  QuoteAggregator
	logger  *zap.Logger
	now     func() time.Time
	metrics *telemetry.DecisionMetrics
}

// NewOrchestratorService creates an orchestrator
func NewOrchestratorService(tax TaxCalculator, quotes QuoteAggregator, opts ...Option) *OrchestratorService {
	s := &OrchestratorService{
		tax:    tax,
		quotes: quotes,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetIntegratedQuotes prices the order under each candidate delivery mode,
// quotes every eligible carrier, joins the two and ranks the offers. It never
// returns an error: failures are reported inside the response.
func (s *OrchestratorService) GetIntegratedQuotes(ctx context.Context, req domain.Request) (resp *domain.Response) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "integrated_quotes",
		telemetry.WithAttribute("destination", req.Destination.CountryCode),
	)
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("integrated quoting panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			resp = domain.FailedResponse(shared.NewSystemError(rec))
		}
		s.metrics.RecordIntegratedQuotes(ctx, modeLabel(req.Options), resp.Success)
	}()

	if errs := req.Validate(); len(errs) > 0 {
		logger.Enrich(ctx, s.logger).Info("integrated quote request rejected", zap.Int("violations", len(errs)))
		return domain.FailedResponse(errs...)
	}

	modes := req.Options.Modes()
	taxResults, best := s.fetch(ctx, req, modes)

	resp = &domain.Response{
		TaxResults: make(map[shared.DeliveryMode]*domaintax.CalculationResult, len(modes)),
		Warnings:   []shared.Warning{},
		Errors:     []shared.CalculationError{},
		Metadata: domain.Metadata{
			RequestID: uuid.NewString(),
			Modes:     modes,
			Timestamp: start,
		},
	}
	var available []*domaintax.CalculationResult
	for i, result := range taxResults {
		resp.TaxResults[modes[i]] = result
		resp.Errors = mergeErrors(resp.Errors, result.Errors)
		resp.Warnings = mergeWarnings(resp.Warnings, result.Warnings)
		if result.Success {
			available = append(available, result)
		}
	}
	resp.Errors = append(resp.Errors, best.Errors...)

	quotes := make([]domain.IntegratedQuote, 0, len(best.Quotes))
	if len(available) > 0 {
		for _, q := range best.Quotes {
			quotes = append(quotes, s.integrate(q, matchTax(available, q.DeliveryMode), req.Options.IncludeInsurance))
		}
	}

	domain.Rank(quotes)
	resp.Analysis = domain.Analyze(quotes)
	resp.Recommendations = domain.Recommend(resp.Analysis, quotes)
	if n := req.Options.MaxResults; n > 0 && len(quotes) > n {
		quotes = quotes[:n]
	}
	resp.Quotes = quotes
	resp.Success = len(quotes) > 0
	if !resp.Success && !hasCode(resp.Errors, shared.CodeNoQuotes) {
		resp.Errors = append(resp.Errors, shared.CalculationError{
			Code:     shared.CodeNoQuotes,
			Category: shared.CategoryProvider,
			Message:  "no integrated quote could be built",
		})
	}
	resp.Metadata.Elapsed = s.now().Sub(start)

	logger.Enrich(ctx, s.logger).Debug("integrated quotes built",
		zap.Int("quotes", len(quotes)),
		zap.Int("errors", len(resp.Errors)),
		zap.Duration("elapsed", resp.Metadata.Elapsed),
	)
	telemetry.SetAttributes(span, "quotes", len(quotes), "success", resp.Success)
	return resp
}

// fetch runs one tax calculation per mode and one quote aggregation
// concurrently and waits for all of them.
func (s *OrchestratorService) fetch(ctx context.Context, req domain.Request, modes []shared.DeliveryMode) ([]*domaintax.CalculationResult, *logistics.BestQuotes) {
	taxResults := make([]*domaintax.CalculationResult, len(modes))
	var best *logistics.BestQuotes

	var wg sync.WaitGroup
	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode shared.DeliveryMode) {
			defer wg.Done()
			taxReq := req.TaxRequest(mode)
			defer func() {
				if rec := recover(); rec != nil {
					taxResults[i] = domaintax.FailedResult(taxReq.Currency, mode, shared.NewSystemError(rec))
				}
			}()
			taxResults[i] = s.tax.CalculateTax(ctx, taxReq)
		}(i, mode)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				best = &logistics.BestQuotes{Errors: []shared.CalculationError{shared.NewSystemError(rec)}}
			}
		}()
		best = s.quotes.GetBestQuotes(ctx, req.ShipmentRequest(), req.QuoteOptions())
	}()
	wg.Wait()
	return taxResults, best
}

// matchTax returns the result of mode, else the first available one
func matchTax(available []*domaintax.CalculationResult, mode shared.DeliveryMode) *domaintax.CalculationResult {
	for _, r := range available {
		if r.DeliveryMode == mode {
			return r
		}
	}
	return available[0]
}

// integrate builds and scores one offer. The carrier's own duty estimate is
// replaced by the tax result, so shipping is the net cost without it.
func (s *OrchestratorService) integrate(q logistics.Quote, t *domaintax.CalculationResult, insured bool) domain.IntegratedQuote {
	cur := t.OrderValue.Currency()
	shipping := decimal.Max(q.NetCost().Sub(q.Pricing.DutiesAndTaxes.Amount()), decimal.Zero)

	cost := domain.CostBreakdown{
		ProductValue: t.OrderValue,
		Shipping:     valueobject.FromDecimal(shipping, cur),
		Taxes:        t.TotalTax,
	}
	total := t.OrderValue.Amount().Add(shipping).Add(t.TotalTax.Amount())
	if insured {
		premium := domain.InsurancePremium(t.OrderValue)
		cost.Insurance = &premium
		total = total.Add(premium.Amount())
	}
	cost.Total = valueobject.FromDecimal(total.Round(2), cur)

	mode := q.DeliveryMode
	if mode == "" {
		mode = t.DeliveryMode
	}
	reliability := s.quotes.Reliability(q.ProviderID)

	return domain.IntegratedQuote{
		ID:           uuid.NewString(),
		QuoteID:      q.ID,
		ProviderID:   q.ProviderID,
		ProviderName: q.ProviderName,
		ServiceCode:  q.ServiceCode,
		ServiceName:  q.ServiceName,
		ServiceClass: q.ServiceClass,
		DeliveryMode: mode,
		Cost:         cost,
		Delivery:     q.Delivery,
		Compliance: domain.ComplianceTag{
			Regime:         t.Compliance.AppliedRegime,
			Status:         t.Compliance.Status,
			FullyCompliant: t.Compliance.FullyCompliant,
			Warnings:       t.Compliance.Issues,
		},
		Features:     q.Features,
		Restrictions: q.Restrictions,
		Score: domain.NewScore(
			100*(1-logistics.NormalizedCost(cost.Charges())),
			100*(1-logistics.NormalizedDays(q.Delivery.Days)),
			domain.ComplianceScore(t.Compliance.Status),
			100*reliability,
		),
		CalculationID: t.Metadata.CalculationID,
		ValidUntil:    q.ValidUntil,
	}
}

// ---------------------------------------------------------------------------
// Mode comparison
// ---------------------------------------------------------------------------

// CompareDeliveryModes runs the whole pipeline once per delivery mode and
// recommends the mode whose cheapest offer has the lower landed total.
func (s *OrchestratorService) CompareDeliveryModes(ctx context.Context, req domain.Request) (cmp *domain.ModeComparison) {
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "compare_modes")
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("mode comparison panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			cmp = &domain.ModeComparison{Errors: []shared.CalculationError{shared.NewSystemError(rec)}}
		}
	}()

	req.Options.DeliveryMode = ""
	if errs := req.Validate(); len(errs) > 0 {
		return &domain.ModeComparison{Errors: errs}
	}

	modes := shared.AllDeliveryModes()
	responses := make([]*domain.Response, len(modes))
	var wg sync.WaitGroup
	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode shared.DeliveryMode) {
			defer wg.Done()
			responses[i] = s.GetIntegratedQuotes(ctx, req.WithDeliveryMode(mode))
		}(i, mode)
	}
	wg.Wait()

	cmp = &domain.ModeComparison{
		Success:        true,
		Errors:         []shared.CalculationError{},
		Considerations: make(map[shared.DeliveryMode][]string, len(modes)),
	}
	outcomes := make([]domain.ModeOutcome, len(modes))
	for i, mode := range modes {
		resp := responses[i]
		outcomes[i] = domain.ModeOutcome{Mode: mode, QuoteCount: len(resp.Quotes), Best: resp.Analysis.BestValue}
		if t, ok := resp.TaxResults[mode]; ok && t.Success {
			total := t.TotalTax
			outcomes[i].TotalTax = &total
		}
		cmp.Errors = mergeErrors(cmp.Errors, resp.Errors)
		cmp.Considerations[mode] = considerations(outcomes[i])
	}
	cmp.DDP, cmp.DAP = outcomes[0], outcomes[1]

	ddp, dap := cmp.DDP.Best, cmp.DAP.Best
	switch {
	case ddp == nil && dap == nil:
		cmp.Success = false
		cmp.Reason = "no integrated quotes for either delivery mode"
	case dap == nil:
		cmp.Recommended = shared.DeliveryModeDDP
		cmp.Reason = "only DDP offers are available"
	case ddp == nil:
		cmp.Recommended = shared.DeliveryModeDAP
		cmp.Reason = "only DAP offers are available"
	default:
		cheaper, dearer := ddp, dap
		cmp.Recommended = shared.DeliveryModeDDP
		if dap.Cost.Total.Amount().LessThan(ddp.Cost.Total.Amount()) {
			cheaper, dearer = dap, ddp
			cmp.Recommended = shared.DeliveryModeDAP
		}
		savings := valueobject.FromDecimal(dearer.Cost.Total.Amount().Sub(cheaper.Cost.Total.Amount()), cheaper.Cost.Total.Currency())
		cmp.Savings = &savings
		cmp.Reason = fmt.Sprintf("best %s offer lands at %s, %s below %s", cmp.Recommended, cheaper.Cost.Total, savings, cmp.Recommended.Opposite())
	}
	return cmp
}

func considerations(o domain.ModeOutcome) []string {
	if o.Mode == shared.DeliveryModeDDP {
		return []string{
			"customer pays no import charges on delivery",
			"seller carries duty and clearance risk",
		}
	}
	out := []string{
		"customer may pay duties, taxes and a carrier handling fee on arrival",
		"unexpected charges raise the risk of refused parcels",
	}
	if o.TotalTax != nil && o.TotalTax.IsPositive() {
		out = append(out, fmt.Sprintf("recipient owes an estimated %s at the border", o.TotalTax))
	}
	return out
}

func modeLabel(o domain.Options) string {
	if o.DeliveryMode.IsValid() {
		return o.DeliveryMode.String()
	}
	return "ALL"
}

func mergeWarnings(into, from []shared.Warning) []shared.Warning {
	for _, w := range from {
		dup := false
		for _, have := range into {
			if have.Code == w.Code && have.Message == w.Message {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, w)
		}
	}
	return into
}

func mergeErrors(into, from []shared.CalculationError) []shared.CalculationError {
	for _, e := range from {
		dup := false
		for _, have := range into {
			if have == e {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, e)
		}
	}
	return into
}

func hasCode(errs []shared.CalculationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}
