package tax

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	domaintax "github.com/xborder/backend/internal/domain/tax"
)

// rateTable indexes a country's rate rows for per-item resolution
type rateTable struct {
	vat         map[ratepolicy.RateClass][]ratepolicy.TaxRate
	duty        []ratepolicy.TaxRate
	consumption []ratepolicy.TaxRate
}

func newRateTable(rows []ratepolicy.TaxRate) rateTable {
	t := rateTable{vat: make(map[ratepolicy.RateClass][]ratepolicy.TaxRate)}
	for _, r := range rows {
		switch r.Kind {
		case ratepolicy.TaxKindVAT:
			t.vat[r.Class] = append(t.vat[r.Class], r)
		case ratepolicy.TaxKindDuty:
			t.duty = append(t.duty, r)
		case ratepolicy.TaxKindConsumptionTax:
			t.consumption = append(t.consumption, r)
		}
	}
	return t
}

// classifyVAT resolves the VAT band of an item: zero-rated first, then
// reduced, else standard. Matches on HS prefix or category tag.
func (t rateTable) classifyVAT(item domaintax.OrderItem) (ratepolicy.RateClass, decimal.Decimal, bool) {
	for _, class := range []ratepolicy.RateClass{ratepolicy.RateClassZero, ratepolicy.RateClassReduced} {
		for _, r := range t.vat[class] {
			if r.MatchesHS(item.HSCode) || r.MatchesCategory(item.Category) {
				return class, r.Rate, true
			}
		}
	}
	if std := t.vat[ratepolicy.RateClassStandard]; len(std) > 0 {
		return ratepolicy.RateClassStandard, std[0].Rate, true
	}
	return "", decimal.Zero, false
}

// dutyRate picks the row with the longest matching HS prefix, falling back
// to the country default row.
func (t rateTable) dutyRate(hsCode string) (decimal.Decimal, bool) {
	hs := ratepolicy.NormalizeHSCode(hsCode)
	var (
		best    decimal.Decimal
		bestLen = -1
	)
	for _, r := range t.duty {
		if len(r.HSPrefixes) == 0 {
			if bestLen < 0 {
				best, bestLen = r.Rate, 0
			}
			continue
		}
		for _, p := range r.HSPrefixes {
			if hs != "" && strings.HasPrefix(hs, p) && len(p) > bestLen {
				best, bestLen = r.Rate, len(p)
			}
		}
	}
	return best, bestLen >= 0
}

// consumptionRate prefers a row for the destination region over a country-wide row
func (t rateTable) consumptionRate(region string) (ratepolicy.TaxRate, bool) {
	var countryWide *ratepolicy.TaxRate
	for i, r := range t.consumption {
		if r.Region == "" {
			countryWide = &t.consumption[i]
			continue
		}
		if strings.EqualFold(r.Region, region) {
			return r, true
		}
	}
	if countryWide != nil {
		return *countryWide, true
	}
	return ratepolicy.TaxRate{}, false
}
