// Package compliance implements the Compliance Validator: per-regime
// PASS/FAIL/WARNING checks, risk scoring and the document checklist.
package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/xborder/backend/internal/domain/compliance"
	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	domaintax "github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// Params are the fixed thresholds of the risk model
type Params struct {
	// HighValueUSD is the order value above which a certificate of origin is
	// required and the high-value penalty applies.
	HighValueUSD        decimal.Decimal
	HighValuePenalty    int
	DangerousGoodsRisk  int
	RestrictedItemsRisk int
	MissingHSCodeRisk   int
	MissingHSCodeCap    int
}

// DefaultParams returns the standard risk model
func DefaultParams() Params {
	return Params{
		HighValueUSD:        decimal.NewFromInt(2500),
		HighValuePenalty:    20,
		DangerousGoodsRisk:  15,
		RestrictedItemsRisk: 10,
		MissingHSCodeRisk:   5,
		MissingHSCodeCap:    15,
	}
}

// CurrencyConverter converts amounts between currencies
type CurrencyConverter interface {
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error)
}

// Option configures a ValidatorService
type Option func(*ValidatorService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *ValidatorService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *ValidatorService) {
		s.now = now
	}
}

// WithParams overrides the risk model
func WithParams(p Params) Option {
	return func(s *ValidatorService) {
		s.params = p
	}
}

// WithMetrics enables decision metrics
func WithMetrics(m *telemetry.DecisionMetrics) Option {
	return func(s *ValidatorService) {
		s.metrics = m
	}
}

// ValidatorService audits orders against the relief regimes
type ValidatorService struct {
	fx        CurrencyConverter
	evaluator *relief.Evaluator
	logger    *zap.Logger
	now       func() time.Time
	params    Params
	metrics   *telemetry.DecisionMetrics
}

// NewValidatorService creates a validator sharing the relief evaluator with the tax calculator
func NewValidatorService(fx CurrencyConverter, evaluator *relief.Evaluator, opts ...Option) *ValidatorService {
	s := &ValidatorService{
		fx:        fx,
		evaluator: evaluator,
		logger:    zap.NewNop(),
		now:       time.Now,
		params:    DefaultParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCompliance audits req. It never returns an error: failures are
// reported inside the validation.
func (s *ValidatorService) ValidateCompliance(ctx context.Context, req domaintax.CalculationRequest) (v *domain.Validation) {
	ctx, span := telemetry.StartServiceSpan(ctx, "compliance", "validate",
		telemetry.WithAttribute("country", req.Destination.CountryCode),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("compliance validation panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			v = domain.FailedValidation(s.now(), shared.NewSystemError(rec))
		}
		s.metrics.RecordCompliance(ctx, req.Destination.CountryCode, string(v.Level))
		telemetry.SetAttributes(span, "level", string(v.Level), "risk_score", v.Risk.Score)
	}()

	if errs := req.Validate(); len(errs) > 0 {
		logger.Enrich(ctx, s.logger).Info("compliance request rejected", zap.Int("violations", len(errs)))
		return domain.FailedValidation(s.now(), errs...)
	}
	req = req.Normalize()

	evals, errs := s.evaluator.EvaluateAll(ctx, req.ReliefInput())
	v = &domain.Validation{
		Success:         true,
		Checks:          make([]domain.RegimeCheck, 0, len(evals)),
		Recommendations: []domain.Recommendation{},
		Errors:          append([]shared.CalculationError{}, errs...),
		Timestamp:       s.now(),
	}
	for _, ev := range evals {
		check, recs := s.checkRegime(req, ev)
		v.Checks = append(v.Checks, check)
		v.Recommendations = append(v.Recommendations, recs...)
	}

	highValue, err := s.isHighValue(ctx, req.OrderValue())
	if err != nil {
		v.Errors = append(v.Errors, shared.NewDataError(shared.CodeCurrencyConversion,
			fmt.Sprintf("order value could not be converted to USD: %v", err)))
	}

	v.Risk = s.assessRisk(req, v.Checks, highValue)
	v.Documents = s.requiredDocuments(req, evals, highValue)
	v.Level = domain.DeriveLevel(v.Checks, v.Risk.Level)

	if missing := countMissingHS(req.Items); missing > 0 {
		v.Recommendations = append(v.Recommendations, domain.Recommendation{
			Action:   fmt.Sprintf("Add HS codes to %d item(s) so customs can verify classification", missing),
			Priority: "MEDIUM",
		})
	}
	if v.Risk.Level == domain.RiskHigh {
		v.Recommendations = append(v.Recommendations, domain.Recommendation{
			Action:   "Review the shipment manually before dispatch",
			Priority: "HIGH",
		})
	}
	return v
}

// checkRegime maps one relief evaluation to a status with its justification
func (s *ValidatorService) checkRegime(req domaintax.CalculationRequest, ev relief.Evaluation) (domain.RegimeCheck, []domain.Recommendation) {
	check := domain.RegimeCheck{Regime: ev.Regime}
	var recs []domain.Recommendation

	if !ev.InScope {
		if ev.LookupFailed {
			check.Status = domain.StatusWarning
			check.Message = fmt.Sprintf("%s could not be verified: %s", ev.Regime, ev.Reason)
			recs = append(recs, domain.Recommendation{Regime: ev.Regime, Action: "Retry validation once policy data is available", Priority: "MEDIUM"})
			return check, recs
		}
		check.Status = domain.StatusNotApplicable
		check.Message = ev.Reason
		return check, nil
	}

	threshold, value := ev.Threshold, ev.OrderValue
	check.Threshold = &threshold
	check.OrderValue = &value
	check.ExchangeRate = ev.ExchangeRate.String()
	if ev.Usage != nil {
		usage := ev.Usage.Total
		check.Usage = &usage
		check.Period = ev.Usage.Key.Period
	}

	switch {
	case ev.LookupFailed:
		check.Status = domain.StatusWarning
		check.Message = fmt.Sprintf("%s could not be fully verified: %s", ev.Regime, ev.Reason)
		recs = append(recs, domain.Recommendation{Regime: ev.Regime, Action: "Retry validation once exchange rates and usage counters are available", Priority: "MEDIUM"})

	case len(ev.ProhibitedItems) > 0:
		check.Status = domain.StatusFail
		check.Message = fmt.Sprintf("%s cannot be claimed: %s", ev.Regime, ev.Reason)
		check.Details = ev.ProhibitedItems
		recs = append(recs, domain.Recommendation{
			Regime:   ev.Regime,
			Action:   "Ship excluded items separately under a formal entry: " + strings.Join(ev.ProhibitedItems, ", "),
			Priority: "HIGH",
		})

	case ev.CapExceeded:
		check.Status = domain.StatusFail
		check.Message = fmt.Sprintf("%s accumulated value %s for %s would exceed the %s cap",
			ev.Regime, ev.ProjectedUsage, periodOf(ev), ev.Threshold)
		recs = append(recs, domain.Recommendation{
			Regime:   ev.Regime,
			Action:   "Hold the shipment until the next accumulation period or file a formal entry",
			Priority: "HIGH",
		})

	case !ev.Applicable:
		check.Status = domain.StatusWarning
		check.Message = ev.Reason + "; relief is unavailable and duties are payable"
		recs = append(recs, domain.Recommendation{
			Regime:   ev.Regime,
			Action:   fmt.Sprintf("Prepare a formal customs entry; the order exceeds %s by %s %s", ev.Threshold, ev.ExceedsBy().StringFixed(2), ev.Threshold.Currency()),
			Priority: "MEDIUM",
		})

	case ev.Policy.CollectsVATAtCheckout && req.DeliveryMode == shared.DeliveryModeDAP:
		check.Status = domain.StatusWarning
		check.Message = fmt.Sprintf("%s requires VAT to be collected at checkout, but the order ships DAP", ev.Regime)
		recs = append(recs, domain.Recommendation{
			Regime:   ev.Regime,
			Action:   "Ship DDP and charge VAT at checkout under " + ev.Policy.FilingReference,
			Priority: "HIGH",
		})

	case ev.NearThreshold && ev.Usage != nil:
		check.Status = domain.StatusWarning
		check.Message = fmt.Sprintf("%s usage %s for %s is approaching the %s threshold", ev.Regime, ev.ProjectedUsage, periodOf(ev), ev.Threshold)
		recs = append(recs, domain.Recommendation{
			Regime:   ev.Regime,
			Action:   "Monitor accumulated value for the period",
			Priority: "LOW",
		})

	default:
		check.Status = domain.StatusPass
		check.Message = ev.Reason
	}
	return check, recs
}

func periodOf(ev relief.Evaluation) string {
	if ev.Usage != nil {
		return ev.Usage.Key.Period
	}
	return "the current period"
}

func (s *ValidatorService) isHighValue(ctx context.Context, value valueobject.Money) (bool, error) {
	amount := value.Amount()
	if value.Currency() != valueobject.USD {
		conv, err := s.fx.ConvertCurrency(ctx, amount, value.Currency(), valueobject.USD)
		if err != nil {
			return false, err
		}
		amount = conv.Amount
	}
	return amount.GreaterThan(s.params.HighValueUSD), nil
}

func (s *ValidatorService) assessRisk(req domaintax.CalculationRequest, checks []domain.RegimeCheck, highValue bool) domain.RiskAssessment {
	risk := domain.RiskAssessment{Factors: []domain.RiskFactor{}}
	add := func(name string, points int) {
		if points <= 0 {
			return
		}
		risk.Factors = append(risk.Factors, domain.RiskFactor{Name: name, Points: points})
		risk.Score += points
	}

	for _, c := range checks {
		add(fmt.Sprintf("%s %s", c.Regime, c.Status), c.Status.RiskWeight())
	}
	if highValue {
		add("high order value", s.params.HighValuePenalty)
	}

	var dangerous, restricted bool
	for _, item := range req.Items {
		dangerous = dangerous || item.Dangerous
		restricted = restricted || item.Restricted
	}
	if dangerous {
		add("dangerous goods", s.params.DangerousGoodsRisk)
	}
	if restricted {
		add("restricted items", s.params.RestrictedItemsRisk)
	}
	if missing := countMissingHS(req.Items); missing > 0 {
		add("missing HS codes", min(missing*s.params.MissingHSCodeRisk, s.params.MissingHSCodeCap))
	}

	risk.Score = min(risk.Score, 100)
	risk.Level = domain.RiskLevelFor(risk.Score)
	return risk
}

func (s *ValidatorService) requiredDocuments(req domaintax.CalculationRequest, evals []relief.Evaluation, highValue bool) []domain.RequiredDocument {
	docs := []domain.RequiredDocument{
		{Code: domain.DocCommercialInvoice, Name: "Commercial invoice", Required: true, Reason: "required for every international shipment"},
		{Code: domain.DocPackingList, Name: "Packing list", Required: true, Reason: "required for every international shipment"},
	}
	for _, ev := range evals {
		if !ev.InScope || !ev.Applicable || ev.Policy == nil || ev.Policy.FilingReference == "" {
			continue
		}
		docs = append(docs, domain.RequiredDocument{
			Code:     domain.DocReliefFiling,
			Name:     ev.Policy.FilingReference,
			Required: true,
			Reason:   fmt.Sprintf("claiming %s relief", ev.Regime),
		})
	}
	if highValue {
		docs = append(docs, domain.RequiredDocument{
			Code:     domain.DocCertificateOfOrigin,
			Name:     "Certificate of origin",
			Required: true,
			Reason:   fmt.Sprintf("order value exceeds %s USD", s.params.HighValueUSD),
		})
	}
	for _, item := range req.Items {
		if item.Dangerous {
			docs = append(docs, domain.RequiredDocument{
				Code:     domain.DocDangerousGoods,
				Name:     "Dangerous goods declaration",
				Required: true,
				Reason:   "the order contains dangerous goods",
			})
			break
		}
	}
	if req.Customer.Type == domaintax.CustomerBusiness && (req.Destination.IsEU || req.Destination.CountryCode == "GB") {
		docs = append(docs, domain.RequiredDocument{
			Code:     domain.DocEORI,
			Name:     "EORI number",
			Required: req.Customer.EORINumber == "",
			Reason:   "business imports into the EU and GB are declared under the importer's EORI number",
		})
	}
	return docs
}

func countMissingHS(items []domaintax.OrderItem) int {
	n := 0
	for _, item := range items {
		if item.HSCode == "" && !item.Digital {
			n++
		}
	}
	return n
}
