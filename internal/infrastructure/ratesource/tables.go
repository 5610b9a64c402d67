package ratesource

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// TablesVersion identifies the bundled rate tables
const TablesVersion = "2026.10"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// HS prefixes and category tags that attract reduced or zero VAT
var (
	bookHS     = []string{"4901", "4902", "4903"}
	foodHS     = []string{"02", "03", "04", "07", "08", "09", "10", "11", "19", "20", "21"}
	medicalHS  = []string{"3004", "3005", "9021"}
	reducedHS  = concat(bookHS, foodHS, medicalHS)
	reducedCat = []string{"books", "food", "medical"}
	exciseHS   = []string{"2203", "2204", "2205", "2206", "2207", "2208", "24"}
)

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// euVAT lists standard and reduced VAT by member state
var euVAT = map[string][2]string{
	"AT": {"0.20", "0.10"}, "BE": {"0.21", "0.06"}, "BG": {"0.20", "0.09"},
	"HR": {"0.25", "0.05"}, "CY": {"0.19", "0.05"}, "CZ": {"0.21", "0.12"},
	"DK": {"0.25", "0.25"}, "EE": {"0.24", "0.09"}, "FI": {"0.255", "0.10"},
	"FR": {"0.20", "0.055"}, "DE": {"0.19", "0.07"}, "GR": {"0.24", "0.06"},
	"HU": {"0.27", "0.05"}, "IE": {"0.23", "0.09"}, "IT": {"0.22", "0.10"},
	"LV": {"0.21", "0.12"}, "LT": {"0.21", "0.09"}, "LU": {"0.17", "0.08"},
	"MT": {"0.18", "0.05"}, "NL": {"0.21", "0.09"}, "PL": {"0.23", "0.08"},
	"PT": {"0.23", "0.06"}, "RO": {"0.21", "0.11"}, "SK": {"0.23", "0.05"},
	"SI": {"0.22", "0.095"}, "ES": {"0.21", "0.10"}, "SE": {"0.25", "0.12"},
}

// usSalesTax lists state-level sales tax. States without one are absent.
var usSalesTax = map[string]string{
	"CA": "0.0725", "NY": "0.04", "TX": "0.0625", "FL": "0.06", "WA": "0.065",
	"IL": "0.0625", "NJ": "0.06625", "PA": "0.06", "MA": "0.0625", "GA": "0.04",
	"OH": "0.0575", "MI": "0.06", "NC": "0.0475", "VA": "0.053", "AZ": "0.056",
	"CO": "0.029", "TN": "0.07", "IN": "0.07", "MN": "0.06875", "NV": "0.0685",
}

// dutyTable maps a duty region to a default rate and HS chapter overrides
type dutyTable struct {
	def       string
	overrides map[string]string
}

var (
	usDuty = dutyTable{def: "0.05", overrides: map[string]string{
		"61": "0.12", "62": "0.12", "64": "0.10", "42": "0.08", "85": "0.026", "95": "0.03",
	}}
	euDuty = dutyTable{def: "0.04", overrides: map[string]string{
		"61": "0.12", "62": "0.12", "64": "0.08", "42": "0.03", "85": "0.02", "49": "0",
	}}
	gbDuty = dutyTable{def: "0.04", overrides: map[string]string{
		"61": "0.12", "62": "0.12", "64": "0.08", "85": "0.02", "49": "0",
	}}
	otherDuty = dutyTable{def: "0.05", overrides: map[string]string{}}
)

func (t dutyTable) rows(country string) []ratepolicy.TaxRate {
	rows := []ratepolicy.TaxRate{{
		CountryCode: country, Kind: ratepolicy.TaxKindDuty, Rate: d(t.def),
		Description: "Import duty (default)",
	}}
	for prefix, rate := range t.overrides {
		rows = append(rows, ratepolicy.TaxRate{
			CountryCode: country, Kind: ratepolicy.TaxKindDuty, Rate: d(rate),
			HSPrefixes: []string{prefix}, Description: "Import duty HS " + prefix,
		})
	}
	return rows
}

func vatRows(country, standard, reduced string) []ratepolicy.TaxRate {
	return []ratepolicy.TaxRate{
		{CountryCode: country, Kind: ratepolicy.TaxKindVAT, Class: ratepolicy.RateClassStandard, Rate: d(standard), Description: "VAT standard rate"},
		{CountryCode: country, Kind: ratepolicy.TaxKindVAT, Class: ratepolicy.RateClassReduced, Rate: d(reduced), HSPrefixes: reducedHS, Categories: reducedCat, Description: "VAT reduced rate"},
	}
}

// defaultRates builds the bundled per-country rate tables
func defaultRates() map[string][]ratepolicy.TaxRate {
	rates := make(map[string][]ratepolicy.TaxRate)

	for country, vat := range euVAT {
		rates[country] = append(vatRows(country, vat[0], vat[1]), euDuty.rows(country)...)
	}

	gb := vatRows("GB", "0.20", "0.05")
	gb[1].HSPrefixes = medicalHS
	gb[1].Categories = []string{"medical"}
	gb = append(gb, ratepolicy.TaxRate{
		CountryCode: "GB", Kind: ratepolicy.TaxKindVAT, Class: ratepolicy.RateClassZero, Rate: decimal.Zero,
		HSPrefixes: concat(bookHS, foodHS), Categories: []string{"books", "food", "children_clothing"},
		Description: "VAT zero rate",
	})
	rates["GB"] = append(gb, gbDuty.rows("GB")...)

	us := usDuty.rows("US")
	for state, rate := range usSalesTax {
		us = append(us, ratepolicy.TaxRate{
			CountryCode: "US", Region: state, Kind: ratepolicy.TaxKindConsumptionTax, Rate: d(rate),
			Description: "State sales tax (" + state + ")",
		})
	}
	rates["US"] = us

	rates["CA"] = append([]ratepolicy.TaxRate{{
		CountryCode: "CA", Kind: ratepolicy.TaxKindVAT, Class: ratepolicy.RateClassStandard, Rate: d("0.05"), Description: "GST",
	}}, otherDuty.rows("CA")...)
	rates["AU"] = append([]ratepolicy.TaxRate{{
		CountryCode: "AU", Kind: ratepolicy.TaxKindVAT, Class: ratepolicy.RateClassStandard, Rate: d("0.10"), Description: "GST",
	}}, otherDuty.rows("AU")...)
	rates["JP"] = append([]ratepolicy.TaxRate{{
		CountryCode: "JP", Kind: ratepolicy.TaxKindConsumptionTax, Rate: d("0.10"), Description: "Consumption tax",
	}}, otherDuty.rows("JP")...)

	return rates
}

// defaultPolicies builds the three relief regime definitions
func defaultPolicies() []ratepolicy.CompliancePolicy {
	effective := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	return []ratepolicy.CompliancePolicy{
		{
			Type:                 ratepolicy.RegimeSection321,
			Name:                 "US de minimis (Section 321)",
			Countries:            []string{"US"},
			Threshold:            valueobject.FromDecimal(d("800"), valueobject.USD),
			Window:               ratepolicy.WindowDay,
			Scope:                ratepolicy.ScopeRecipient,
			ExemptsDuty:          true,
			CapsAccumulation:     true,
			ExcludesRestricted:   true,
			ProhibitedHSPrefixes: exciseHS,
			FilingReference:      "Type 86 entry",
			EffectiveFrom:        time.Date(2016, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Type:                  ratepolicy.RegimeIOSS,
			Name:                  "EU Import One-Stop Shop",
			Countries:             shared.EUMemberStates(),
			Threshold:             valueobject.FromDecimal(d("150"), valueobject.EUR),
			Window:                ratepolicy.WindowMonth,
			Scope:                 ratepolicy.ScopeSeller,
			ExemptsDuty:           true,
			CollectsVATAtCheckout: true,
			ProhibitedHSPrefixes:  exciseHS,
			FilingReference:       "IOSS number",
			EffectiveFrom:         effective,
		},
		{
			Type:                  ratepolicy.RegimeUKLowValue,
			Name:                  "UK low-value consignment relief",
			Countries:             []string{"GB"},
			Threshold:             valueobject.FromDecimal(d("135"), valueobject.GBP),
			Window:                ratepolicy.WindowQuarter,
			Scope:                 ratepolicy.ScopeSeller,
			ExemptsDuty:           true,
			CollectsVATAtCheckout: true,
			ProhibitedHSPrefixes:  exciseHS,
			FilingReference:       "UK VAT registration number",
			EffectiveFrom:         time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// defaultExchangeRates are units of each currency per one USD
func defaultExchangeRates() map[valueobject.Currency]decimal.Decimal {
	return map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: d("1"),
		valueobject.EUR: d("0.92"),
		valueobject.GBP: d("0.79"),
		valueobject.CNY: d("7.24"),
		valueobject.CAD: d("1.36"),
		valueobject.AUD: d("1.52"),
		valueobject.JPY: d("151.0"),
	}
}
