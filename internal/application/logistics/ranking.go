package logistics

import (
	"sort"

	"github.com/shopspring/decimal"

	domain "github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// ReliabilityFunc resolves a provider's reliability in [0, 1]
type ReliabilityFunc func(providerID string) float64

// FilterQuotes applies the cost, transit time and delivery mode post-filters
func FilterQuotes(quotes []domain.Quote, opts domain.Options) []domain.Quote {
	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if opts.MaxCost != nil && q.NetCost().GreaterThan(*opts.MaxCost) {
			continue
		}
		if opts.MinDeliveryDays > 0 && q.Delivery.Days < opts.MinDeliveryDays {
			continue
		}
		if opts.MaxDeliveryDays > 0 && q.Delivery.Days > opts.MaxDeliveryDays {
			continue
		}
		if opts.DeliveryMode != "" && q.DeliveryMode != opts.DeliveryMode {
			continue
		}
		out = append(out, q)
	}
	return out
}

// SortQuotes orders quotes in place by criterion. Ties keep input order.
func SortQuotes(quotes []domain.Quote, by domain.SortBy, reliability ReliabilityFunc) {
	switch by {
	case domain.SortByTime:
		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].Delivery.Days < quotes[j].Delivery.Days
		})
	case domain.SortByReliability:
		sort.SliceStable(quotes, func(i, j int) bool {
			return reliability(quotes[i].ProviderID) > reliability(quotes[j].ProviderID)
		})
	case domain.SortByScore:
		type scored struct {
			quote domain.Quote
			score float64
		}
		ranked := make([]scored, len(quotes))
		for i, q := range quotes {
			ranked[i] = scored{quote: q, score: domain.CompositeScore(q, reliability(q.ProviderID))}
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].score < ranked[j].score
		})
		for i := range ranked {
			quotes[i] = ranked[i].quote
		}
	default:
		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].NetCost().LessThan(quotes[j].NetCost())
		})
	}
}

// Analyze summarizes all (the merged set) and picks the recommendation from
// filtered, falling back to the cheapest overall.
func Analyze(all, filtered []domain.Quote) domain.Analysis {
	a := domain.Analysis{TotalQuotes: len(all)}
	if len(all) == 0 {
		return a
	}

	providers := make(map[string]struct{})
	total := decimal.Zero
	days := 0
	cheapest, priciest, fastest, slowest := 0, 0, 0, 0
	for i, q := range all {
		providers[q.ProviderID] = struct{}{}
		total = total.Add(q.NetCost())
		days += q.Delivery.Days
		if q.NetCost().LessThan(all[cheapest].NetCost()) {
			cheapest = i
		}
		if q.NetCost().GreaterThan(all[priciest].NetCost()) {
			priciest = i
		}
		if q.Delivery.Days < all[fastest].Delivery.Days {
			fastest = i
		}
		if q.Delivery.Days > all[slowest].Delivery.Days {
			slowest = i
		}
	}

	a.Providers = len(providers)
	a.Cheapest = &all[cheapest]
	a.MostExpensive = &all[priciest]
	a.Fastest = &all[fastest]
	a.Slowest = &all[slowest]
	avg := valueobject.FromDecimal(total.DivRound(decimal.NewFromInt(int64(len(all))), 2), all[0].Pricing.Currency())
	a.AverageCost = &avg
	a.AverageDays = float64(days) / float64(len(all))

	if len(filtered) > 0 {
		a.Recommended = &filtered[0]
	} else {
		a.Recommended = a.Cheapest
	}
	return a
}

// averageNetCost is nil for an empty set
func averageNetCost(quotes []domain.Quote) *valueobject.Money {
	if len(quotes) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, q := range quotes {
		total = total.Add(q.NetCost())
	}
	avg := valueobject.FromDecimal(total.DivRound(decimal.NewFromInt(int64(len(quotes))), 2), quotes[0].Pricing.Currency())
	return &avg
}
