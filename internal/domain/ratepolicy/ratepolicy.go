// Package ratepolicy defines the read-only Rate & Policy Source: per-country
// tax rate tables, relief-regime definitions and currency conversion.
package ratepolicy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

var (
	// ErrRatesNotFound is returned when no rate table exists for a country
	ErrRatesNotFound = errors.New("ratepolicy: rates not found")
	// ErrPolicyNotFound is returned when a regime is not defined for a country
	ErrPolicyNotFound = errors.New("ratepolicy: policy not found")
	// ErrCurrencyNotSupported is returned for currencies missing from the FX table
	ErrCurrencyNotSupported = errors.New("ratepolicy: currency not supported")
)

// TaxKind is the kind of charge a rate produces
type TaxKind string

const (
	TaxKindVAT            TaxKind = "VAT"
	TaxKindDuty           TaxKind = "DUTY"
	TaxKindConsumptionTax TaxKind = "CONSUMPTION_TAX"
	TaxKindHandlingFee    TaxKind = "HANDLING_FEE"
)

// IsValid checks if the tax kind is valid
func (k TaxKind) IsValid() bool {
	switch k {
	case TaxKindVAT, TaxKindDuty, TaxKindConsumptionTax, TaxKindHandlingFee:
		return true
	}
	return false
}

// RateClass is the VAT band a good falls into
type RateClass string

const (
	RateClassStandard RateClass = "STANDARD"
	RateClassReduced  RateClass = "REDUCED"
	RateClassZero     RateClass = "ZERO"
)

// TaxRate is one row of a country's rate table.
//
// VAT rows carry a Class and optionally the HS prefixes or category tags the
// class applies to. DUTY rows are matched by the longest HSPrefix; an empty
// prefix is the country default. CONSUMPTION_TAX rows are matched by Region.
type TaxRate struct {
	CountryCode string          `json:"countryCode"`
	Region      string          `json:"region,omitempty"`
	Kind        TaxKind         `json:"kind"`
	Class       RateClass       `json:"class,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	HSPrefixes  []string        `json:"hsPrefixes,omitempty"`
	Categories  []string        `json:"categories,omitempty"`
	Description string          `json:"description,omitempty"`
}

// MatchesHS reports whether the HS code starts with one of the row's prefixes
func (r TaxRate) MatchesHS(hsCode string) bool {
	hs := NormalizeHSCode(hsCode)
	if hs == "" {
		return false
	}
	for _, p := range r.HSPrefixes {
		if strings.HasPrefix(hs, p) {
			return true
		}
	}
	return false
}

// MatchesCategory reports whether the category tag is listed on the row
func (r TaxRate) MatchesCategory(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return false
	}
	for _, rc := range r.Categories {
		if rc == c {
			return true
		}
	}
	return false
}

// RateFilter narrows a rate lookup. Zero values match everything.
type RateFilter struct {
	Kind   TaxKind
	Region string
}

// Matches reports whether the rate satisfies the filter
func (f RateFilter) Matches(r TaxRate) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Region != "" && r.Region != "" && !strings.EqualFold(f.Region, r.Region) {
		return false
	}
	return true
}

// NormalizeHSCode strips separators so "4901.99" and "490199" compare equal
func NormalizeHSCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegimeType identifies a relief regime
type RegimeType string

const (
	// RegimeSection321 is US import-duty de minimis relief
	RegimeSection321 RegimeType = "SECTION_321"
	// RegimeIOSS is the EU simplified low-value VAT scheme
	RegimeIOSS RegimeType = "IOSS"
	// RegimeUKLowValue is UK low-value consignment relief
	RegimeUKLowValue RegimeType = "UK_LOW_VALUE"
)

// AllRegimes returns every modeled regime in a stable order
func AllRegimes() []RegimeType {
	return []RegimeType{RegimeSection321, RegimeIOSS, RegimeUKLowValue}
}

// IsValid checks if the regime type is valid
func (t RegimeType) IsValid() bool {
	switch t {
	case RegimeSection321, RegimeIOSS, RegimeUKLowValue:
		return true
	}
	return false
}

// String returns the string representation
func (t RegimeType) String() string {
	return string(t)
}

// Window is the period over which usage of a regime accumulates
type Window string

const (
	WindowDay     Window = "DAY"
	WindowMonth   Window = "MONTH"
	WindowQuarter Window = "QUARTER"
)

// Bounds returns the [start, end) period containing t, in UTC
func (w Window) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	switch w {
	case WindowMonth:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	case WindowQuarter:
		q := (int(t.Month()) - 1) / 3
		start := time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0)
	default:
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}

// PeriodKey returns a stable label for the period containing t
func (w Window) PeriodKey(t time.Time) string {
	start, _ := w.Bounds(t)
	switch w {
	case WindowMonth:
		return start.Format("2006-01")
	case WindowQuarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	default:
		return start.Format("2006-01-02")
	}
}

// Scope is whose shipments share an accumulation counter
type Scope string

const (
	ScopeRecipient Scope = "RECIPIENT"
	ScopeSeller    Scope = "SELLER"
)

// CompliancePolicy defines one relief regime for a set of destination countries
type CompliancePolicy struct {
	Type      RegimeType        `json:"type"`
	Name      string            `json:"name"`
	Countries []string          `json:"countries"`
	Threshold valueobject.Money `json:"threshold"`
	Window    Window            `json:"window"`
	Scope     Scope             `json:"scope"`
	// ExemptsDuty means no import duty is charged when the regime applies.
	ExemptsDuty bool `json:"exemptsDuty"`
	// ExemptsVAT means no import VAT is charged when the regime applies.
	ExemptsVAT bool `json:"exemptsVat"`
	// CollectsVATAtCheckout means VAT is charged by the seller, not at the border.
	CollectsVATAtCheckout bool `json:"collectsVatAtCheckout"`
	// CapsAccumulation means period usage plus this order must stay within Threshold.
	CapsAccumulation bool `json:"capsAccumulation"`
	// ProhibitedHSPrefixes lists goods excluded from the regime (excise goods and the like).
	ProhibitedHSPrefixes []string `json:"prohibitedHsPrefixes,omitempty"`
	// ExcludesRestricted excludes items flagged restricted from the regime.
	ExcludesRestricted bool `json:"excludesRestricted"`
	// FilingReference names the registration number the regime requires.
	FilingReference string    `json:"filingReference,omitempty"`
	EffectiveFrom   time.Time `json:"effectiveFrom"`
}

// CoversCountry reports whether the policy applies to the destination
func (p CompliancePolicy) CoversCountry(countryCode string) bool {
	for _, c := range p.Countries {
		if strings.EqualFold(c, countryCode) {
			return true
		}
	}
	return false
}

// Conversion is the outcome of a currency conversion
type Conversion struct {
	Amount decimal.Decimal      `json:"amount"`
	From   valueobject.Currency `json:"from"`
	To     valueobject.Currency `json:"to"`
	Rate   decimal.Decimal      `json:"rate"`
}

// Source is the Rate & Policy Source port
type Source interface {
	// GetTaxRates returns the rate rows for a country, or ErrRatesNotFound
	GetTaxRates(ctx context.Context, countryCode string, filter RateFilter) ([]TaxRate, error)
	// GetCompliancePolicy returns the regime definition, or ErrPolicyNotFound when absent
	GetCompliancePolicy(ctx context.Context, regime RegimeType, countryCode string) (*CompliancePolicy, error)
	// ConvertCurrency converts an amount between two currencies
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (Conversion, error)
}
