// Package compliance holds the document- and risk-oriented audit of an
// order against the relief regimes.
package compliance

import (
	"time"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// CheckStatus is the outcome of one regime check
type CheckStatus string

const (
	StatusPass          CheckStatus = "PASS"
	StatusFail          CheckStatus = "FAIL"
	StatusWarning       CheckStatus = "WARNING"
	StatusNotApplicable CheckStatus = "NOT_APPLICABLE"
)

// IsValid checks if the status is valid
func (s CheckStatus) IsValid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarning, StatusNotApplicable:
		return true
	}
	return false
}

// RiskWeight is the contribution of a regime status to the risk score
func (s CheckStatus) RiskWeight() int {
	switch s {
	case StatusFail:
		return 30
	case StatusWarning:
		return 15
	case StatusNotApplicable:
		return 5
	default:
		return 0
	}
}

// Level is the overall compliance verdict
type Level string

const (
	LevelFull         Level = "FULL"
	LevelPartial      Level = "PARTIAL"
	LevelNonCompliant Level = "NON_COMPLIANT"
)

// RiskLevel buckets the risk score
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevelFor maps a 0-100 score onto a level
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RegimeCheck is the audit of one regime
type RegimeCheck struct {
	Regime ratepolicy.RegimeType `json:"regime"`
	Status CheckStatus           `json:"status"`
	// Message is the human-readable justification of Status.
	Message string `json:"message"`
	// Threshold, OrderValue and Usage are in the regime currency.
	Threshold    *valueobject.Money `json:"threshold,omitempty"`
	OrderValue   *valueobject.Money `json:"orderValue,omitempty"`
	ExchangeRate string             `json:"exchangeRate,omitempty"`
	Usage        *valueobject.Money `json:"usage,omitempty"`
	Period       string             `json:"period,omitempty"`
	Details      []string           `json:"details,omitempty"`
}

// RiskFactor is one contribution to the risk score
type RiskFactor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// RiskAssessment is the 0-100 risk score with its factors
type RiskAssessment struct {
	Score   int          `json:"score"`
	Level   RiskLevel    `json:"level"`
	Factors []RiskFactor `json:"factors"`
}

// Document codes
const (
	DocCommercialInvoice   = "COMMERCIAL_INVOICE"
	DocPackingList         = "PACKING_LIST"
	DocCertificateOfOrigin = "CERTIFICATE_OF_ORIGIN"
	DocDangerousGoods      = "DANGEROUS_GOODS_DECLARATION"
	DocEORI                = "EORI_NUMBER"
	DocReliefFiling        = "RELIEF_FILING_REFERENCE"
)

// RequiredDocument is one entry of the document checklist
type RequiredDocument struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Reason   string `json:"reason"`
}

// Recommendation is a remediation step
type Recommendation struct {
	Regime   ratepolicy.RegimeType `json:"regime,omitempty"`
	Action   string                `json:"action"`
	Priority string                `json:"priority"`
}

// Validation is the result of a compliance audit
type Validation struct {
	Success         bool                      `json:"success"`
	Level           Level                     `json:"level"`
	Checks          []RegimeCheck             `json:"checks"`
	Risk            RiskAssessment            `json:"risk"`
	Documents       []RequiredDocument        `json:"documents"`
	Recommendations []Recommendation          `json:"recommendations"`
	Errors          []shared.CalculationError `json:"errors"`
	Timestamp       time.Time                 `json:"timestamp"`
}

// Check returns the check of a regime
func (v *Validation) Check(regime ratepolicy.RegimeType) (RegimeCheck, bool) {
	for _, c := range v.Checks {
		if c.Regime == regime {
			return c, true
		}
	}
	return RegimeCheck{}, false
}

// RequiresDocument reports whether the checklist contains a required document
func (v *Validation) RequiresDocument(code string) bool {
	for _, d := range v.Documents {
		if d.Code == code && d.Required {
			return true
		}
	}
	return false
}

// DeriveLevel computes the verdict: any FAIL is non-compliant, any WARNING or
// a HIGH risk is partial, otherwise full.
func DeriveLevel(checks []RegimeCheck, risk RiskLevel) Level {
	warned := false
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return LevelNonCompliant
		case StatusWarning:
			warned = true
		}
	}
	if warned || risk == RiskHigh {
		return LevelPartial
	}
	return LevelFull
}

// FailedValidation builds a non-compliant validation carrying errs
func FailedValidation(at time.Time, errs ...shared.CalculationError) *Validation {
	return &Validation{
		Success:         false,
		Level:           LevelNonCompliant,
		Checks:          []RegimeCheck{},
		Risk:            RiskAssessment{Factors: []RiskFactor{}},
		Documents:       []RequiredDocument{},
		Recommendations: []Recommendation{},
		Errors:          errs,
		Timestamp:       at,
	}
}
