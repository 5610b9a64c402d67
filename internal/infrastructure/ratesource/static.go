// Package ratesource provides Rate & Policy Source implementations: the
// bundled static tables and a time-boxed caching decorator.
package ratesource

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// Ensure StaticSource implements ratepolicy.Source
var _ ratepolicy.Source = (*StaticSource)(nil)

// conversionPrecision is the number of decimal places kept on converted amounts
const conversionPrecision = 6

// StaticSource serves rates, policies and FX from in-process tables
type StaticSource struct {
	rates    map[string][]ratepolicy.TaxRate
	policies []ratepolicy.CompliancePolicy
	fx       map[valueobject.Currency]decimal.Decimal
}

// StaticOption is a functional option for configuring StaticSource
type StaticOption func(*StaticSource)

// WithCountryRates replaces the rate table of a country
func WithCountryRates(countryCode string, rates []ratepolicy.TaxRate) StaticOption {
	return func(s *StaticSource) {
		s.rates[strings.ToUpper(countryCode)] = rates
	}
}

// WithPolicy adds or replaces a regime definition
func WithPolicy(policy ratepolicy.CompliancePolicy) StaticOption {
	return func(s *StaticSource) {
		for i, p := range s.policies {
			if p.Type == policy.Type {
				s.policies[i] = policy
				return
			}
		}
		s.policies = append(s.policies, policy)
	}
}

// WithExchangeRate sets units of cur per one USD
func WithExchangeRate(cur valueobject.Currency, perUSD decimal.Decimal) StaticOption {
	return func(s *StaticSource) {
		s.fx[cur] = perUSD
	}
}

// NewStaticSource creates a source over the bundled tables
func NewStaticSource(opts ...StaticOption) *StaticSource {
	s := &StaticSource{
		rates:    defaultRates(),
		policies: defaultPolicies(),
		fx:       defaultExchangeRates(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTaxRates returns the rows of a country matching filter
func (s *StaticSource) GetTaxRates(ctx context.Context, countryCode string, filter ratepolicy.RateFilter) ([]ratepolicy.TaxRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, ok := s.rates[strings.ToUpper(countryCode)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ratepolicy.ErrRatesNotFound, countryCode)
	}
	out := make([]ratepolicy.TaxRate, 0, len(table))
	for _, r := range table {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetCompliancePolicy returns the regime definition covering countryCode
func (s *StaticSource) GetCompliancePolicy(ctx context.Context, regime ratepolicy.RegimeType, countryCode string) (*ratepolicy.CompliancePolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range s.policies {
		if p.Type == regime && p.CoversCountry(countryCode) {
			policy := p
			return &policy, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ratepolicy.ErrPolicyNotFound, regime, countryCode)
}

// ConvertCurrency converts through the USD pivot
func (s *StaticSource) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return ratepolicy.Conversion{}, err
	}
	if from == to {
		return ratepolicy.Conversion{Amount: amount, From: from, To: to, Rate: decimal.NewFromInt(1)}, nil
	}
	fromRate, ok := s.fx[from]
	if !ok {
		return ratepolicy.Conversion{}, fmt.Errorf("%w: %s", ratepolicy.ErrCurrencyNotSupported, from)
	}
	toRate, ok := s.fx[to]
	if !ok {
		return ratepolicy.Conversion{}, fmt.Errorf("%w: %s", ratepolicy.ErrCurrencyNotSupported, to)
	}
	rate := toRate.DivRound(fromRate, conversionPrecision)
	return ratepolicy.Conversion{
		Amount: amount.Mul(rate).Round(conversionPrecision),
		From:   from,
		To:     to,
		Rate:   rate,
	}, nil
}

// Countries returns the country codes with rate tables
func (s *StaticSource) Countries() []string {
	out := make([]string, 0, len(s.rates))
	for c := range s.rates {
		out = append(out, c)
	}
	return out
}
