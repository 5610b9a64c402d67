package logistics

import "github.com/shopspring/decimal"

// Normalization ceilings shared by quote ranking and integrated scoring
var (
	CostCeiling = decimal.NewFromInt(1000)
	DaysCeiling = 30.0
)

// NormalizedCost maps a cost onto [0, 1] against CostCeiling
func NormalizedCost(cost decimal.Decimal) float64 {
	f, _ := cost.Div(CostCeiling).Float64()
	return clamp01(f)
}

// NormalizedDays maps a transit time onto [0, 1] against DaysCeiling
func NormalizedDays(days int) float64 {
	return clamp01(float64(days) / DaysCeiling)
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}

// CompositeScore is the lower-is-better 0.4·cost + 0.3·days + 0.3·(1 − reliability)
func CompositeScore(q Quote, reliability float64) float64 {
	return 0.4*NormalizedCost(q.NetCost()) + 0.3*NormalizedDays(q.Delivery.Days) + 0.3*(1-reliability)
}
