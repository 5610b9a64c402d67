package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

// Recommendation thresholds
var (
	CostSavingsThreshold = decimal.NewFromInt(20)
	TimeRangeThreshold   = 10
)

// RecommendationType names an orchestration-level recommendation
type RecommendationType string

const (
	RecommendCostOptimization RecommendationType = "COST_OPTIMIZATION"
	RecommendCompliance       RecommendationType = "COMPLIANCE"
	RecommendTimeOptimization RecommendationType = "TIME_OPTIMIZATION"
)

// Recommendation is an actionable observation over the ranked set
type Recommendation struct {
	Type             RecommendationType `json:"type"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Priority         string             `json:"priority"`
	PotentialSavings *valueobject.Money `json:"potentialSavings,omitempty"`
}

// CostRange spans landed totals
type CostRange struct {
	Min valueobject.Money `json:"min"`
	Max valueobject.Money `json:"max"`
}

// TimeRange spans transit days
type TimeRange struct {
	MinDays int `json:"minDays"`
	MaxDays int `json:"maxDays"`
}

// Span is MaxDays - MinDays
func (t TimeRange) Span() int {
	return t.MaxDays - t.MinDays
}

// Analysis aggregates a set of integrated quotes
type Analysis struct {
	TotalQuotes      int                          `json:"totalQuotes"`
	CostRange        *CostRange                   `json:"costRange,omitempty"`
	TimeRange        *TimeRange                   `json:"timeRange,omitempty"`
	BestValue        *IntegratedQuote             `json:"bestValue,omitempty"`
	Fastest          *IntegratedQuote             `json:"fastest,omitempty"`
	MostCompliant    *IntegratedQuote             `json:"mostCompliant,omitempty"`
	ComplianceCounts map[tax.ComplianceStatus]int `json:"complianceCounts"`
	// Savings is the worst total minus the best total.
	Savings        *valueobject.Money `json:"savings,omitempty"`
	SavingsPercent decimal.Decimal    `json:"savingsPercent"`
}

// Metadata describes how a response was produced
type Metadata struct {
	RequestID string                `json:"requestId"`
	Modes     []shared.DeliveryMode `json:"modes"`
	Timestamp time.Time             `json:"timestamp"`
	Elapsed   time.Duration         `json:"elapsedNs"`
}

// Response is the ranked outcome of an integrated quote request.
// When Success is false Errors is non-empty.
type Response struct {
	Success         bool                                           `json:"success"`
	Quotes          []IntegratedQuote                              `json:"quotes"`
	Analysis        Analysis                                       `json:"analysis"`
	Recommendations []Recommendation                               `json:"recommendations"`
	TaxResults      map[shared.DeliveryMode]*tax.CalculationResult `json:"taxResults,omitempty"`
	Warnings        []shared.Warning                               `json:"warnings"`
	Errors          []shared.CalculationError                      `json:"errors"`
	Metadata        Metadata                                       `json:"metadata"`
}

// FailedResponse builds a failure response carrying errs
func FailedResponse(errs ...shared.CalculationError) *Response {
	return &Response{
		Success:         false,
		Quotes:          []IntegratedQuote{},
		Analysis:        Analysis{ComplianceCounts: map[tax.ComplianceStatus]int{}},
		Recommendations: []Recommendation{},
		Warnings:        []shared.Warning{},
		Errors:          errs,
	}
}

// HasRecommendation reports whether a recommendation of the type is present
func (r *Response) HasRecommendation(t RecommendationType) bool {
	for _, rec := range r.Recommendations {
		if rec.Type == t {
			return true
		}
	}
	return false
}

// ModeOutcome is the best offer of one delivery mode
type ModeOutcome struct {
	Mode       shared.DeliveryMode `json:"mode"`
	QuoteCount int                 `json:"quoteCount"`
	Best       *IntegratedQuote    `json:"best,omitempty"`
	TotalTax   *valueobject.Money  `json:"totalTax,omitempty"`
}

// ModeComparison compares the best landed cost under DDP and DAP
type ModeComparison struct {
	Success        bool                             `json:"success"`
	DDP            ModeOutcome                      `json:"ddp"`
	DAP            ModeOutcome                      `json:"dap"`
	Recommended    shared.DeliveryMode              `json:"recommended,omitempty"`
	Savings        *valueobject.Money               `json:"savings,omitempty"`
	Reason         string                           `json:"reason"`
	Considerations map[shared.DeliveryMode][]string `json:"considerations"`
	Errors         []shared.CalculationError        `json:"errors"`
}
