package logistics

import (
	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// Analysis summarizes a merged quote set
type Analysis struct {
	TotalQuotes   int                `json:"totalQuotes"`
	Providers     int                `json:"providers"`
	Cheapest      *Quote             `json:"cheapest,omitempty"`
	MostExpensive *Quote             `json:"mostExpensive,omitempty"`
	AverageCost   *valueobject.Money `json:"averageCost,omitempty"`
	Fastest       *Quote             `json:"fastest,omitempty"`
	Slowest       *Quote             `json:"slowest,omitempty"`
	AverageDays   float64            `json:"averageDays"`
	// Recommended is the first filtered quote, else the cheapest overall.
	Recommended *Quote `json:"recommended,omitempty"`
}

// BestQuotes is the result of a filtered, ordered quote request
type BestQuotes struct {
	Success  bool                      `json:"success"`
	Quotes   []Quote                   `json:"quotes"`
	Analysis Analysis                  `json:"analysis"`
	Errors   []shared.CalculationError `json:"errors"`
}

// ModeSummary aggregates the quotes of one delivery mode
type ModeSummary struct {
	Mode           shared.DeliveryMode `json:"mode"`
	QuoteCount     int                 `json:"quoteCount"`
	AverageNetCost *valueobject.Money  `json:"averageNetCost,omitempty"`
	Best           *Quote              `json:"best,omitempty"`
}

// ModeComparison compares DDP and DAP quote sets
type ModeComparison struct {
	Success        bool                      `json:"success"`
	DDP            ModeSummary               `json:"ddp"`
	DAP            ModeSummary               `json:"dap"`
	Recommended    shared.DeliveryMode       `json:"recommended,omitempty"`
	Savings        *valueobject.Money        `json:"savings,omitempty"`
	SavingsPercent decimal.Decimal           `json:"savingsPercent"`
	Reason         string                    `json:"reason"`
	Errors         []shared.CalculationError `json:"errors"`
}
