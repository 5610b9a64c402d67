package logistics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	domain "github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
)

func TestCompositeScore(t *testing.T) {
	q := quoteOf("STD", 100, 6, shared.DeliveryModeDDP)
	// 0.4·0.1 + 0.3·0.2 + 0.3·0.5
	assert.InDelta(t, 0.25, domain.CompositeScore(q, 0.5), 1e-9)

	huge := quoteOf("STD", 5000, 90, shared.DeliveryModeDDP)
	assert.InDelta(t, 0.7, domain.CompositeScore(huge, 1), 1e-9, "normalized terms are clamped")
	assert.InDelta(t, 0, domain.NormalizedCost(decimal.NewFromInt(-5)), 1e-9)
}

func TestSortQuotes(t *testing.T) {
	quotes := func() []domain.Quote {
		a := quoteOf("A", 20, 10, "")
		a.ProviderID = "slowco"
		b := quoteOf("B", 40, 2, "")
		b.ProviderID = "fastco"
		c := quoteOf("C", 20, 8, "")
		c.ProviderID = "fastco"
		return []domain.Quote{a, b, c}
	}
	reliability := func(id string) float64 {
		if id == "fastco" {
			return 0.9
		}
		return 0.3
	}
	codes := func(qs []domain.Quote) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.ServiceCode
		}
		return out
	}

	tests := []struct {
		by   domain.SortBy
		want []string
	}{
		{domain.SortByCost, []string{"A", "C", "B"}},
		{"", []string{"A", "C", "B"}},
		{domain.SortByTime, []string{"B", "C", "A"}},
		{domain.SortByReliability, []string{"B", "C", "A"}},
		{domain.SortByScore, []string{"B", "C", "A"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			qs := quotes()
			SortQuotes(qs, tt.by, reliability)
			assert.Equal(t, tt.want, codes(qs))
		})
	}
}

func TestFilterQuotes(t *testing.T) {
	quotes := []domain.Quote{
		quoteOf("A", 20, 10, shared.DeliveryModeDDP),
		quoteOf("B", 40, 2, shared.DeliveryModeDAP),
		quoteOf("C", 60, 1, shared.DeliveryModeDDP),
	}
	maxCost := decimal.NewFromInt(50)
	out := FilterQuotes(quotes, domain.Options{MaxCost: &maxCost, MinDeliveryDays: 2})
	assert.Len(t, out, 2)

	out = FilterQuotes(quotes, domain.Options{DeliveryMode: shared.DeliveryModeDAP})
	assert.Len(t, out, 1)
	assert.Equal(t, "B", out[0].ServiceCode)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil, nil)
	assert.Zero(t, a.TotalQuotes)
	assert.Nil(t, a.Recommended)
}
