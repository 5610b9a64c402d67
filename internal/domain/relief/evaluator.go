// Package relief evaluates the relief regimes (US de minimis, EU IOSS,
// UK low-value relief) for an order. It is the single rule set shared by
// tax calculation and compliance validation.
package relief

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// DefaultNearThresholdRatio flags usage at or above 80% of a threshold
var DefaultNearThresholdRatio = decimal.RequireFromString("0.8")

// PolicySource is the subset of the Rate & Policy Source the evaluator reads
type PolicySource interface {
	GetCompliancePolicy(ctx context.Context, regime ratepolicy.RegimeType, countryCode string) (*ratepolicy.CompliancePolicy, error)
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error)
}

// ItemProfile is what the rules need to know about an order line
type ItemProfile struct {
	Name       string
	HSCode     string
	Category   string
	Restricted bool
	Dangerous  bool
}

// Input is an order as seen by the relief rules
type Input struct {
	CountryCode string
	OrderValue  valueobject.Money
	Items       []ItemProfile
	RecipientID string
	SellerID    string
}

// Evaluation is the outcome of one regime for one order
type Evaluation struct {
	Regime ratepolicy.RegimeType        `json:"regime"`
	Policy *ratepolicy.CompliancePolicy `json:"-"`
	// InScope is true when the destination is covered by the regime.
	InScope    bool `json:"inScope"`
	Applicable bool `json:"applicable"`
	// Threshold and OrderValue are in the regime's native currency.
	Threshold      valueobject.Money `json:"threshold"`
	OrderValue     valueobject.Money `json:"orderValue"`
	ExchangeRate   decimal.Decimal   `json:"exchangeRate"`
	Usage          *Usage            `json:"usage,omitempty"`
	ProjectedUsage valueobject.Money `json:"projectedUsage"`
	// CapExceeded means the order fits the threshold alone but the period
	// counter plus this order passes it.
	CapExceeded     bool              `json:"capExceeded"`
	NearThreshold   bool              `json:"nearThreshold"`
	ExemptedValue   valueobject.Money `json:"exemptedValue"`
	ProhibitedItems []string          `json:"prohibitedItems,omitempty"`
	Reason          string            `json:"reason"`
	// LookupFailed is set when a policy, FX or usage lookup errored.
	LookupFailed bool `json:"lookupFailed,omitempty"`
}

// ExceedsBy returns how far the order value is above the threshold (zero when within)
func (e Evaluation) ExceedsBy() decimal.Decimal {
	over := e.OrderValue.Amount().Sub(e.Threshold.Amount())
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithAccumulationStore enables per-period usage lookups
func WithAccumulationStore(store AccumulationStore) Option {
	return func(e *Evaluator) {
		e.store = store
	}
}

// WithClock overrides the time source used to pick accumulation periods
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// WithNearThresholdRatio overrides the proximity warning ratio
func WithNearThresholdRatio(ratio decimal.Decimal) Option {
	return func(e *Evaluator) {
		e.nearRatio = ratio
	}
}

// Evaluator applies relief regime definitions to orders
type Evaluator struct {
	source    PolicySource
	store     AccumulationStore
	now       func() time.Time
	nearRatio decimal.Decimal
}

// NewEvaluator creates an evaluator reading definitions from source
func NewEvaluator(source PolicySource, opts ...Option) *Evaluator {
	e := &Evaluator{
		source:    source,
		now:       time.Now,
		nearRatio: DefaultNearThresholdRatio,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAll evaluates every modeled regime concurrently.
// Evaluations are returned in ratepolicy.AllRegimes order. Lookup failures are
// reported as DATA errors and never abort the other regimes.
func (e *Evaluator) EvaluateAll(ctx context.Context, in Input) ([]Evaluation, []shared.CalculationError) {
	regimes := ratepolicy.AllRegimes()
	evals := make([]Evaluation, len(regimes))
	errs := make([][]shared.CalculationError, len(regimes))

	var wg sync.WaitGroup
	for i, regime := range regimes {
		wg.Add(1)
		go func(i int, regime ratepolicy.RegimeType) {
			defer wg.Done()
			evals[i], errs[i] = e.Evaluate(ctx, regime, in)
		}(i, regime)
	}
	wg.Wait()

	var all []shared.CalculationError
	for _, es := range errs {
		all = append(all, es...)
	}
	return evals, all
}

// Evaluate applies one regime. A regime is applicable only when the order value
// in the regime currency is at or below the threshold and no item is excluded.
func (e *Evaluator) Evaluate(ctx context.Context, regime ratepolicy.RegimeType, in Input) (Evaluation, []shared.CalculationError) {
	eval := Evaluation{Regime: regime, ExchangeRate: decimal.NewFromInt(1)}

	policy, err := e.source.GetCompliancePolicy(ctx, regime, in.CountryCode)
	if err != nil {
		if errors.Is(err, ratepolicy.ErrPolicyNotFound) {
			eval.Reason = fmt.Sprintf("%s does not cover destination %s", regime, in.CountryCode)
			return eval, nil
		}
		eval.Reason = "policy lookup failed"
		eval.LookupFailed = true
		return eval, []shared.CalculationError{
			shared.NewDataError(shared.CodePolicyNotFound, fmt.Sprintf("%s policy lookup failed: %v", regime, err)),
		}
	}

	eval.Policy = policy
	eval.InScope = true
	eval.Threshold = policy.Threshold
	cur := policy.Threshold.Currency()
	eval.ExemptedValue = valueobject.Zero(cur)
	eval.ProjectedUsage = valueobject.Zero(cur)

	native, rate, err := e.toNative(ctx, in.OrderValue, cur)
	if err != nil {
		eval.OrderValue = valueobject.Zero(cur)
		eval.Reason = "order value could not be converted to " + cur.String()
		eval.LookupFailed = true
		return eval, []shared.CalculationError{
			shared.NewDataError(shared.CodeCurrencyConversion, fmt.Sprintf("%s: %v", regime, err)),
		}
	}
	eval.OrderValue = native
	eval.ExchangeRate = rate
	eval.ProhibitedItems = prohibitedItems(*policy, in.Items)

	withinThreshold := native.Amount().LessThanOrEqual(policy.Threshold.Amount())
	eval.Applicable = withinThreshold && len(eval.ProhibitedItems) == 0
	switch {
	case eval.Applicable:
		eval.ExemptedValue = native
		eval.Reason = fmt.Sprintf("order value %s is within the %s threshold of %s", native, regime, policy.Threshold)
	case !withinThreshold:
		eval.Reason = fmt.Sprintf("order value %s exceeds the %s threshold of %s", native, regime, policy.Threshold)
	default:
		eval.Reason = fmt.Sprintf("%d item(s) are excluded from %s", len(eval.ProhibitedItems), regime)
	}

	var errs []shared.CalculationError
	usage, err := e.usage(ctx, *policy, in)
	if err != nil {
		eval.LookupFailed = true
		errs = append(errs, shared.NewDataError(shared.CodeAccumulationLookup, fmt.Sprintf("%s: %v", regime, err)))
	}
	projected := native
	if usage != nil {
		eval.Usage = usage
		if sum, err := usage.Total.Add(native); err == nil {
			projected = sum
		}
	}
	eval.ProjectedUsage = projected
	eval.CapExceeded = policy.CapsAccumulation && usage != nil && withinThreshold &&
		projected.Amount().GreaterThan(policy.Threshold.Amount())
	if !eval.CapExceeded && withinThreshold {
		eval.NearThreshold = projected.Amount().GreaterThanOrEqual(policy.Threshold.Amount().Mul(e.nearRatio))
	}
	return eval, errs
}

// RecordShipment adds a booked order to the counters of every regime that applies to it.
func (e *Evaluator) RecordShipment(ctx context.Context, in Input) ([]Usage, error) {
	if e.store == nil {
		return nil, nil
	}
	evals, _ := e.EvaluateAll(ctx, in)
	var recorded []Usage
	for _, ev := range evals {
		if !ev.Applicable || ev.Policy == nil {
			continue
		}
		subject := subjectFor(*ev.Policy, in)
		if subject == "" {
			continue
		}
		key := NewAccumulationKey(*ev.Policy, subject, e.now())
		u, err := e.store.Record(ctx, key, ev.OrderValue)
		if err != nil {
			return recorded, fmt.Errorf("%w: %v", ErrAccumulationUnavailable, err)
		}
		recorded = append(recorded, u)
	}
	return recorded, nil
}

// UsageStamp describes the accumulation counters an evaluation of in reads
// right now: each counter key with its current total. Results derived from
// an evaluation stay valid only while the stamp is unchanged, which covers
// bookings from any instance and the start of a new period.
func (e *Evaluator) UsageStamp(ctx context.Context, in Input) (string, error) {
	if e.store == nil {
		return "", nil
	}
	now := e.now()
	var b strings.Builder
	for _, regime := range ratepolicy.AllRegimes() {
		policy, err := e.source.GetCompliancePolicy(ctx, regime, in.CountryCode)
		if err != nil {
			if errors.Is(err, ratepolicy.ErrPolicyNotFound) {
				continue
			}
			return "", err
		}
		subject := subjectFor(*policy, in)
		if subject == "" {
			continue
		}
		key := NewAccumulationKey(*policy, subject, now)
		u, err := e.store.Usage(ctx, key, policy.Threshold.Currency())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAccumulationUnavailable, err)
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%s/%d", key, u.Total.Amount().String(), u.Shipments)
	}
	return b.String(), nil
}

func (e *Evaluator) toNative(ctx context.Context, value valueobject.Money, cur valueobject.Currency) (valueobject.Money, decimal.Decimal, error) {
	if value.Currency() == cur {
		return value, decimal.NewFromInt(1), nil
	}
	conv, err := e.source.ConvertCurrency(ctx, value.Amount(), value.Currency(), cur)
	if err != nil {
		return valueobject.Money{}, decimal.Zero, err
	}
	native, err := valueobject.NewMoney(conv.Amount.Round(2), cur)
	if err != nil {
		return valueobject.Money{}, decimal.Zero, err
	}
	return native, conv.Rate, nil
}

func (e *Evaluator) usage(ctx context.Context, policy ratepolicy.CompliancePolicy, in Input) (*Usage, error) {
	if e.store == nil {
		return nil, nil
	}
	subject := subjectFor(policy, in)
	if subject == "" {
		return nil, nil
	}
	u, err := e.store.Usage(ctx, NewAccumulationKey(policy, subject, e.now()), policy.Threshold.Currency())
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func subjectFor(policy ratepolicy.CompliancePolicy, in Input) string {
	if policy.Scope == ratepolicy.ScopeSeller {
		return in.SellerID
	}
	return in.RecipientID
}

func prohibitedItems(policy ratepolicy.CompliancePolicy, items []ItemProfile) []string {
	var out []string
	for _, item := range items {
		if policy.ExcludesRestricted && item.Restricted {
			out = append(out, item.Name)
			continue
		}
		hs := ratepolicy.NormalizeHSCode(item.HSCode)
		for _, p := range policy.ProhibitedHSPrefixes {
			if hs != "" && len(hs) >= len(p) && hs[:len(p)] == p {
				out = append(out, item.Name)
				break
			}
		}
	}
	return out
}
