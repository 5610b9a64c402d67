// Package tax implements the Tax Calculator: import tax breakdown, relief
// regime outcome, recommendations and warnings for a single order.
package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	domaintax "github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/cache"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// ErrInvalidRequest is returned by operations that cannot report validation in a result
var ErrInvalidRequest = errors.New("tax: invalid request")

// DefaultResultTTL is how long a calculation result stays cached
const DefaultResultTTL = time.Hour

// Params are the fixed ratios the calculator applies
type Params struct {
	// HandlingFeeRate is charged on import charges collected at the border.
	HandlingFeeRate decimal.Decimal
	// HandlingFeeCap caps the handling fee, in the order currency.
	HandlingFeeCap decimal.Decimal
	// DDPRecommendationRatio is the tax/value ratio above which DDP is recommended.
	DDPRecommendationRatio decimal.Decimal
	// HighTaxBurdenRatio is the tax/value ratio above which a warning is raised.
	HighTaxBurdenRatio decimal.Decimal
}

// DefaultParams returns the standard ratios
func DefaultParams() Params {
	return Params{
		HandlingFeeRate:        decimal.RequireFromString("0.025"),
		HandlingFeeCap:         decimal.NewFromInt(10),
		DDPRecommendationRatio: decimal.RequireFromString("0.15"),
		HighTaxBurdenRatio:     decimal.RequireFromString("0.30"),
	}
}

// ResultCache stores calculation results. Keys combine the calculation
// identifier with the relief usage the result was computed against.
type ResultCache interface {
	Get(key string) (*domaintax.CalculationResult, bool)
	Set(key string, value *domaintax.CalculationResult)
}

// Option configures a CalculatorService
type Option func(*CalculatorService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *CalculatorService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResultCache replaces the default in-memory result cache
func WithResultCache(c ResultCache) Option {
	return func(s *CalculatorService) {
		s.cache = c
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *CalculatorService) {
		s.now = now
	}
}

// WithParams overrides the fixed ratios
func WithParams(p Params) Option {
	return func(s *CalculatorService) {
		s.params = p
	}
}

// WithMetrics enables decision metrics
func WithMetrics(m *telemetry.DecisionMetrics) Option {
	return func(s *CalculatorService) {
		s.metrics = m
	}
}

// CalculatorService computes import tax for orders
type CalculatorService struct {
	source    ratepolicy.Source
	evaluator *relief.Evaluator
	cache     ResultCache
	logger    *zap.Logger
	now       func() time.Time
	params    Params
	metrics   *telemetry.DecisionMetrics
}

// NewCalculatorService creates a calculator reading rates from source and
// applying relief rules through evaluator.
func NewCalculatorService(source ratepolicy.Source, evaluator *relief.Evaluator, opts ...Option) *CalculatorService {
	s := &CalculatorService{
		source:    source,
		evaluator: evaluator,
		logger:    zap.NewNop(),
		now:       time.Now,
		params:    DefaultParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewTTLCache[*domaintax.CalculationResult](
			cache.WithTTL(DefaultResultTTL),
			cache.WithName("tax_results"),
			cache.WithClock(s.now),
			cache.WithCacheLogger(s.logger),
		)
	}
	return s
}

// CalculateTax computes the tax result for req. It never returns an error:
// failures are reported inside the result.
func (s *CalculatorService) CalculateTax(ctx context.Context, req domaintax.CalculationRequest) (result *domaintax.CalculationResult) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "tax", "calculate",
		telemetry.WithAttribute("country", req.Destination.CountryCode),
		telemetry.WithAttribute("items", len(req.Items)),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("tax calculation panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			result = domaintax.FailedResult(req.Currency, req.DeliveryMode, shared.NewSystemError(rec))
			result.Metadata = domaintax.Metadata{Timestamp: start, Elapsed: s.now().Sub(start)}
		}
		s.metrics.RecordTaxCalculation(ctx, req.Destination.CountryCode, result.Metadata.FromCache, result.Success, result.Metadata.Elapsed)
		telemetry.SetAttributes(span, "success", result.Success, "from_cache", result.Metadata.FromCache)
	}()

	if errs := req.Validate(); len(errs) > 0 {
		logger.Enrich(ctx, s.logger).Info("tax request rejected", zap.Int("violations", len(errs)))
		cur := req.Currency
		if !cur.IsValid() {
			cur = valueobject.DefaultCurrency
		}
		result = domaintax.FailedResult(cur, req.DeliveryMode, errs...)
		result.Metadata = domaintax.Metadata{Timestamp: start, Elapsed: s.now().Sub(start)}
		return result
	}

	req = req.Normalize()
	id := req.Fingerprint()

	cacheKey, useCache := id, req.Options.UseCache
	if useCache {
		stamp, err := s.evaluator.UsageStamp(ctx, req.ReliefInput())
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("relief usage unavailable, skipping result cache", zap.Error(err))
			useCache = false
		} else if stamp != "" {
			cacheKey = id + "|" + stamp
		}
	}

	if useCache {
		if cached, ok := s.cache.Get(cacheKey); ok {
			result = cached.Clone()
			result.Metadata = domaintax.Metadata{
				CalculationID: id,
				Timestamp:     start,
				Elapsed:       s.now().Sub(start),
				FromCache:     true,
			}
			return result
		}
	}

	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelOperation: "tax_calculate",
		telemetry.ProfilingLabelCountry:   req.Destination.CountryCode,
	}, func(ctx context.Context) {
		result = s.compute(ctx, req)
	})
	result.Metadata = domaintax.Metadata{
		CalculationID: id,
		Timestamp:     start,
		Elapsed:       s.now().Sub(start),
	}
	if useCache && result.Success {
		s.cache.Set(cacheKey, result.Clone())
	}
	return result
}

// RecordShipment adds a booked order to the relief accumulation counters
func (s *CalculatorService) RecordShipment(ctx context.Context, req domaintax.CalculationRequest) ([]relief.Usage, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errs[0].Error())
	}
	req = req.Normalize()
	return s.evaluator.RecordShipment(ctx, req.ReliefInput())
}

// lineTax is the unrounded tax of one item
type lineTax struct {
	value     decimal.Decimal
	vatClass  ratepolicy.RateClass
	vatRate   decimal.Decimal
	vat       decimal.Decimal
	hasVAT    bool
	dutyRate  decimal.Decimal
	duty      decimal.Decimal
	dutyFull  decimal.Decimal
	hasDuty   bool
	salesRate decimal.Decimal
	sales     decimal.Decimal
	hasSales  bool
}

func (s *CalculatorService) compute(ctx context.Context, req domaintax.CalculationRequest) *domaintax.CalculationResult {
	orderValue := req.OrderValue()
	result := &domaintax.CalculationResult{
		Success:         true,
		DeliveryMode:    req.DeliveryMode,
		OrderValue:      orderValue,
		Breakdown:       []domaintax.BreakdownEntry{},
		Recommendations: []domaintax.Recommendation{},
		Warnings:        []shared.Warning{},
		Errors:          []shared.CalculationError{},
	}

	rows, err := s.source.GetTaxRates(ctx, req.Destination.CountryCode, ratepolicy.RateFilter{Region: req.Destination.State})
	if err != nil {
		logger.Enrich(ctx, s.logger).Warn("tax rates unavailable",
			zap.String("country", req.Destination.CountryCode), zap.Error(err))
		result.Errors = append(result.Errors, shared.NewDataError(shared.CodeRateNotFound,
			fmt.Sprintf("no tax rates for %s: %v", req.Destination.CountryCode, err)))
		result.Warnings = append(result.Warnings, shared.Warning{
			Code:    domaintax.WarnRatesUnavailable,
			Message: "tax could not be fully computed; rates for the destination are unavailable",
		})
	}
	table := newRateTable(rows)

	evals, evalErrs := s.evaluator.EvaluateAll(ctx, req.ReliefInput())
	result.Errors = append(result.Errors, evalErrs...)
	applied := appliedRegime(evals)

	lines := make([]lineTax, len(req.Items))
	for i, item := range req.Items {
		lines[i] = s.itemTax(item, req.Destination, table, applied)
	}

	s.assembleBreakdown(result, req, lines, applied)
	result.Compliance = s.complianceInfo(req, evals, applied, lines)
	result.Recommendations = s.recommendations(req, evals, lines, result)
	result.Warnings = append(result.Warnings, s.warnings(req, evals, applied, result)...)
	if req.Options.IncludeBreakdown {
		result.Items = itemDetails(req, lines)
	}
	return result
}

func appliedRegime(evals []relief.Evaluation) *relief.Evaluation {
	for i := range evals {
		if evals[i].InScope && evals[i].Applicable {
			return &evals[i]
		}
	}
	return nil
}

func (s *CalculatorService) itemTax(item domaintax.OrderItem, dest domaintax.Destination, table rateTable, applied *relief.Evaluation) lineTax {
	line := lineTax{value: item.TotalValue()}

	if rate, ok := table.dutyRate(item.HSCode); ok && !item.Digital {
		line.hasDuty = true
		line.dutyRate = rate
		line.dutyFull = line.value.Mul(rate)
		line.duty = line.dutyFull
		if applied != nil && applied.Policy.ExemptsDuty {
			line.duty = decimal.Zero
			line.hasDuty = false
		}
	}

	if class, rate, ok := table.classifyVAT(item); ok {
		exempt := applied != nil && applied.Policy.ExemptsVAT
		if !exempt {
			line.hasVAT = true
			line.vatClass = class
			line.vatRate = rate
			// Import VAT is levied on the customs value plus duty.
			line.vat = line.value.Add(line.duty).Mul(rate)
		}
	}

	if row, ok := table.consumptionRate(dest.State); ok {
		line.hasSales = true
		line.salesRate = row.Rate
		line.sales = line.value.Mul(row.Rate)
	}
	return line
}

func (s *CalculatorService) assembleBreakdown(result *domaintax.CalculationResult, req domaintax.CalculationRequest, lines []lineTax, applied *relief.Evaluation) {
	cur := req.Currency
	var (
		vatBase, vatAmt, dutyBase, dutyAmt, salesBase, salesAmt decimal.Decimal
		vatRates, dutyRates, salesRates                         []decimal.Decimal
		anyVAT, anyDuty, anySales                               bool
	)
	for _, l := range lines {
		if l.hasVAT {
			anyVAT = true
			vatBase = vatBase.Add(l.value.Add(l.duty))
			vatAmt = vatAmt.Add(l.vat)
			vatRates = append(vatRates, l.vatRate)
		}
		if l.hasDuty {
			anyDuty = true
			dutyBase = dutyBase.Add(l.value)
			dutyAmt = dutyAmt.Add(l.duty)
			dutyRates = append(dutyRates, l.dutyRate)
		}
		if l.hasSales {
			anySales = true
			salesBase = salesBase.Add(l.value)
			salesAmt = salesAmt.Add(l.sales)
			salesRates = append(salesRates, l.salesRate)
		}
	}

	add := func(kind ratepolicy.TaxKind, name string, rates []decimal.Decimal, base, amount decimal.Decimal) {
		result.Breakdown = append(result.Breakdown, domaintax.BreakdownEntry{
			Kind:        kind,
			Name:        name,
			Rate:        bucketRate(rates, base, amount),
			TaxableBase: valueobject.FromDecimal(base.Round(2), cur),
			Amount:      valueobject.FromDecimal(amount.Round(2), cur),
		})
	}
	if anyDuty {
		add(ratepolicy.TaxKindDuty, "Import duty", dutyRates, dutyBase, dutyAmt)
	}
	if anyVAT {
		add(ratepolicy.TaxKindVAT, "VAT", vatRates, vatBase, vatAmt)
	}
	if anySales {
		name := "Consumption tax"
		if req.Destination.State != "" {
			name = "State sales tax (" + req.Destination.State + ")"
		}
		add(ratepolicy.TaxKindConsumptionTax, name, salesRates, salesBase, salesAmt)
	}

	// Charges the carrier collects from the buyer on arrival attract a handling fee.
	if req.DeliveryMode == shared.DeliveryModeDAP {
		border := dutyAmt.Round(2)
		if !(applied != nil && applied.Policy.CollectsVATAtCheckout) {
			border = border.Add(vatAmt.Round(2))
		}
		if border.IsPositive() {
			fee := decimal.Min(border.Mul(s.params.HandlingFeeRate), s.params.HandlingFeeCap)
			add(ratepolicy.TaxKindHandlingFee, "Import handling fee", []decimal.Decimal{s.params.HandlingFeeRate}, border, fee)
		}
	}

	total := decimal.Zero
	for _, e := range result.Breakdown {
		total = total.Add(e.Amount.Amount())
	}
	result.TotalTax = valueobject.FromDecimal(total, cur)
}

// bucketRate is the shared rate when all items agree, else the effective rate
func bucketRate(rates []decimal.Decimal, base, amount decimal.Decimal) decimal.Decimal {
	if len(rates) == 0 {
		return decimal.Zero
	}
	uniform := true
	for _, r := range rates[1:] {
		if !r.Equal(rates[0]) {
			uniform = false
			break
		}
	}
	if uniform || base.IsZero() {
		return rates[0]
	}
	return amount.DivRound(base, 4)
}

func itemDetails(req domaintax.CalculationRequest, lines []lineTax) []domaintax.ItemTax {
	cur := req.Currency
	out := make([]domaintax.ItemTax, 0, len(lines))
	for i, l := range lines {
		item := req.Items[i]
		out = append(out, domaintax.ItemTax{
			ItemName:  item.Name,
			HSCode:    item.HSCode,
			Value:     valueobject.FromDecimal(l.value, cur),
			VATClass:  l.vatClass,
			VATRate:   l.vatRate,
			VAT:       valueobject.FromDecimal(l.vat.Round(2), cur),
			DutyRate:  l.dutyRate,
			Duty:      valueobject.FromDecimal(l.duty.Round(2), cur),
			SalesRate: l.salesRate,
			SalesTax:  valueobject.FromDecimal(l.sales.Round(2), cur),
		})
	}
	return out
}
