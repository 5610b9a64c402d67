package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// BreakdownEntry is the aggregate of one tax kind across all items
type BreakdownEntry struct {
	Kind        ratepolicy.TaxKind `json:"kind"`
	Name        string             `json:"name"`
	Rate        decimal.Decimal    `json:"rate"`
	TaxableBase valueobject.Money  `json:"taxableBase"`
	Amount      valueobject.Money  `json:"amount"`
}

// ItemTax is the per-item detail behind the breakdown
type ItemTax struct {
	ItemName  string               `json:"itemName"`
	HSCode    string               `json:"hsCode,omitempty"`
	Value     valueobject.Money    `json:"value"`
	VATClass  ratepolicy.RateClass `json:"vatClass,omitempty"`
	VATRate   decimal.Decimal      `json:"vatRate"`
	VAT       valueobject.Money    `json:"vat"`
	DutyRate  decimal.Decimal      `json:"dutyRate"`
	Duty      valueobject.Money    `json:"duty"`
	SalesRate decimal.Decimal      `json:"salesRate"`
	SalesTax  valueobject.Money    `json:"salesTax"`
}

// ComplianceStatus summarizes how well the order sits inside a relief regime
type ComplianceStatus string

const (
	// ComplianceFull means a regime applies and every condition is met.
	ComplianceFull ComplianceStatus = "FULL"
	// CompliancePartial means a regime applies but some condition is unmet.
	CompliancePartial ComplianceStatus = "PARTIAL"
	// ComplianceNone means no relief regime applies.
	ComplianceNone ComplianceStatus = "NONE"
)

// UsageCounters are the accumulation counters by window, in the regime currency
type UsageCounters struct {
	Daily     *valueobject.Money `json:"daily,omitempty"`
	Monthly   *valueobject.Money `json:"monthly,omitempty"`
	Quarterly *valueobject.Money `json:"quarterly,omitempty"`
}

// RegimeInfo is the per-regime record inside ComplianceInfo
type RegimeInfo struct {
	Type            ratepolicy.RegimeType `json:"type"`
	InScope         bool                  `json:"inScope"`
	Applicable      bool                  `json:"applicable"`
	Threshold       valueobject.Money     `json:"threshold"`
	OrderValue      valueobject.Money     `json:"orderValue"`
	Usage           UsageCounters         `json:"usage"`
	ExemptedAmount  valueobject.Money     `json:"exemptedAmount"`
	Savings         valueobject.Money     `json:"savings"`
	ProhibitedItems []string              `json:"prohibitedItems,omitempty"`
	Reason          string                `json:"reason"`
}

// NewRegimeInfo projects a relief evaluation into the result shape
func NewRegimeInfo(ev relief.Evaluation, savings valueobject.Money) RegimeInfo {
	info := RegimeInfo{
		Type:            ev.Regime,
		InScope:         ev.InScope,
		Applicable:      ev.Applicable,
		Threshold:       ev.Threshold,
		OrderValue:      ev.OrderValue,
		ExemptedAmount:  ev.ExemptedValue,
		Savings:         savings,
		ProhibitedItems: ev.ProhibitedItems,
		Reason:          ev.Reason,
	}
	if ev.Usage != nil && ev.Policy != nil {
		total := ev.Usage.Total
		switch ev.Policy.Window {
		case ratepolicy.WindowDay:
			info.Usage.Daily = &total
		case ratepolicy.WindowMonth:
			info.Usage.Monthly = &total
		case ratepolicy.WindowQuarter:
			info.Usage.Quarterly = &total
		}
	}
	return info
}

// ComplianceInfo reports relief regime outcomes for a calculation
type ComplianceInfo struct {
	Regimes        []RegimeInfo          `json:"regimes"`
	AppliedRegime  ratepolicy.RegimeType `json:"appliedRegime,omitempty"`
	Status         ComplianceStatus      `json:"status"`
	FullyCompliant bool                  `json:"fullyCompliant"`
	Issues         []string              `json:"issues,omitempty"`
}

// Regime returns the record for a regime type
func (c ComplianceInfo) Regime(t ratepolicy.RegimeType) (RegimeInfo, bool) {
	for _, r := range c.Regimes {
		if r.Type == t {
			return r, true
		}
	}
	return RegimeInfo{}, false
}

// RecommendationType names an optimization the merchant can act on
type RecommendationType string

const (
	RecommendSplitOrder  RecommendationType = "SPLIT_ORDER"
	RecommendAdjustPrice RecommendationType = "ADJUST_PRICE"
	RecommendBatchOrders RecommendationType = "BATCH_ORDERS"
	RecommendSwitchToDDP RecommendationType = "SWITCH_TO_DDP"
	RecommendAddHSCodes  RecommendationType = "ADD_HS_CODES"
)

// Recommendation is an optimization with a quantified upside
type Recommendation struct {
	Type             RecommendationType `json:"type"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	PotentialSavings valueobject.Money  `json:"potentialSavings"`
	Priority         string             `json:"priority"`
}

// Warning codes
const (
	WarnHighTaxBurden        = "HIGH_TAX_BURDEN"
	WarnMissingHSCode        = "MISSING_HS_CODE"
	WarnNearThreshold        = "NEAR_THRESHOLD"
	WarnAccumulationExceeded = "ACCUMULATION_CAP_EXCEEDED"
	WarnReliefNeedsDDP       = "RELIEF_REQUIRES_CHECKOUT_COLLECTION"
	WarnRatesUnavailable     = "RATES_UNAVAILABLE"
)

// Metadata describes how a result was produced
type Metadata struct {
	CalculationID string        `json:"calculationId"`
	Timestamp     time.Time     `json:"timestamp"`
	Elapsed       time.Duration `json:"elapsedNs"`
	FromCache     bool          `json:"fromCache"`
}

// CalculationResult is the outcome of a tax calculation.
// When Success is false TotalTax is zero and Errors is non-empty.
type CalculationResult struct {
	Success         bool                      `json:"success"`
	DeliveryMode    shared.DeliveryMode       `json:"deliveryMode"`
	OrderValue      valueobject.Money         `json:"orderValue"`
	TotalTax        valueobject.Money         `json:"totalTax"`
	Breakdown       []BreakdownEntry          `json:"breakdown"`
	Items           []ItemTax                 `json:"items,omitempty"`
	Compliance      ComplianceInfo            `json:"compliance"`
	Recommendations []Recommendation          `json:"recommendations"`
	Warnings        []shared.Warning          `json:"warnings"`
	Errors          []shared.CalculationError `json:"errors"`
	Metadata        Metadata                  `json:"metadata"`
}

// FailedResult builds a failure result carrying errs
func FailedResult(cur valueobject.Currency, mode shared.DeliveryMode, errs ...shared.CalculationError) *CalculationResult {
	return &CalculationResult{
		Success:         false,
		DeliveryMode:    mode,
		OrderValue:      valueobject.Zero(cur),
		TotalTax:        valueobject.Zero(cur),
		Breakdown:       []BreakdownEntry{},
		Compliance:      ComplianceInfo{Status: ComplianceNone},
		Recommendations: []Recommendation{},
		Warnings:        []shared.Warning{},
		Errors:          errs,
	}
}

// BreakdownEntry returns the entry of a kind
func (r *CalculationResult) BreakdownEntry(kind ratepolicy.TaxKind) (BreakdownEntry, bool) {
	for _, e := range r.Breakdown {
		if e.Kind == kind {
			return e, true
		}
	}
	return BreakdownEntry{}, false
}

// HasRecommendation reports whether a recommendation of the type is present
func (r *CalculationResult) HasRecommendation(t RecommendationType) (Recommendation, bool) {
	for _, rec := range r.Recommendations {
		if rec.Type == t {
			return rec, true
		}
	}
	return Recommendation{}, false
}

// HasWarning reports whether a warning with the code is present
func (r *CalculationResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to mutate metadata on
func (r *CalculationResult) Clone() *CalculationResult {
	c := *r
	c.Breakdown = append(make([]BreakdownEntry, 0, len(r.Breakdown)), r.Breakdown...)
	c.Items = append(make([]ItemTax, 0, len(r.Items)), r.Items...)
	c.Recommendations = append(make([]Recommendation, 0, len(r.Recommendations)), r.Recommendations...)
	c.Warnings = append(make([]shared.Warning, 0, len(r.Warnings)), r.Warnings...)
	c.Errors = append(make([]shared.CalculationError, 0, len(r.Errors)), r.Errors...)
	c.Compliance.Regimes = append(make([]RegimeInfo, 0, len(r.Compliance.Regimes)), r.Compliance.Regimes...)
	return &c
}
