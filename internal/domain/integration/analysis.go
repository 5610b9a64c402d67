package integration

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

// Rank orders quotes by overall score, highest first. Ties keep input order.
func Rank(quotes []IntegratedQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Score.Overall > quotes[j].Score.Overall
	})
}

// Analyze aggregates a ranked quote set
func Analyze(quotes []IntegratedQuote) Analysis {
	a := Analysis{TotalQuotes: len(quotes), ComplianceCounts: map[tax.ComplianceStatus]int{}}
	if len(quotes) == 0 {
		return a
	}

	cheapest, priciest, fastest, slowest, compliant := 0, 0, 0, 0, 0
	for i, q := range quotes {
		a.ComplianceCounts[q.Compliance.Status]++
		total := q.Cost.Total.Amount()
		if total.LessThan(quotes[cheapest].Cost.Total.Amount()) {
			cheapest = i
		}
		if total.GreaterThan(quotes[priciest].Cost.Total.Amount()) {
			priciest = i
		}
		if q.Delivery.Days < quotes[fastest].Delivery.Days {
			fastest = i
		}
		if q.Delivery.Days > quotes[slowest].Delivery.Days {
			slowest = i
		}
		if q.Score.Compliance > quotes[compliant].Score.Compliance {
			compliant = i
		}
	}

	a.CostRange = &CostRange{Min: quotes[cheapest].Cost.Total, Max: quotes[priciest].Cost.Total}
	a.TimeRange = &TimeRange{MinDays: quotes[fastest].Delivery.Days, MaxDays: quotes[slowest].Delivery.Days}
	a.BestValue = &quotes[cheapest]
	a.Fastest = &quotes[fastest]
	a.MostCompliant = &quotes[compliant]

	best, worst := a.CostRange.Min, a.CostRange.Max
	savings := valueobject.FromDecimal(worst.Amount().Sub(best.Amount()), best.Currency())
	a.Savings = &savings
	if worst.IsPositive() {
		a.SavingsPercent = savings.Amount().Mul(decimal.NewFromInt(100)).DivRound(worst.Amount(), 2)
	}
	return a
}

// Recommend derives cost, compliance and transit-time recommendations
func Recommend(a Analysis, quotes []IntegratedQuote) []Recommendation {
	recs := []Recommendation{}
	if len(quotes) == 0 {
		return recs
	}

	if a.SavingsPercent.GreaterThan(CostSavingsThreshold) && a.BestValue != nil {
		recs = append(recs, Recommendation{
			Type:  RecommendCostOptimization,
			Title: "Choose the lowest landed cost",
			Description: fmt.Sprintf("%s %s costs %s in total, %s%% less than the most expensive option",
				a.BestValue.ProviderName, a.BestValue.ServiceName, a.BestValue.Cost.Total, a.SavingsPercent),
			Priority:         "HIGH",
			PotentialSavings: a.Savings,
		})
	}

	nonCompliant := 0
	var issues []string
	for _, q := range quotes {
		if !q.Compliance.FullyCompliant {
			nonCompliant++
			if issues == nil {
				issues = q.Compliance.Warnings
			}
		}
	}
	if nonCompliant > 0 {
		desc := fmt.Sprintf("%d of %d options are not fully compliant with the applicable relief regime", nonCompliant, len(quotes))
		if len(issues) > 0 {
			desc += ": " + issues[0]
		}
		recs = append(recs, Recommendation{
			Type:        RecommendCompliance,
			Title:       "Review compliance before booking",
			Description: desc,
			Priority:    "HIGH",
		})
	}

	if a.TimeRange != nil && a.TimeRange.Span() > TimeRangeThreshold {
		recs = append(recs, Recommendation{
			Type:  RecommendTimeOptimization,
			Title: "Balance transit time against cost",
			Description: fmt.Sprintf("Transit times range from %d to %d days; %s %s is the fastest",
				a.TimeRange.MinDays, a.TimeRange.MaxDays, a.Fastest.ProviderName, a.Fastest.ServiceName),
			Priority: "MEDIUM",
		})
	}
	return recs
}
