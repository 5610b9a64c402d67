package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	domaintax "github.com/xborder/backend/internal/domain/tax"
)

func missingHSCodes(items []domaintax.OrderItem) []string {
	var names []string
	for _, item := range items {
		if item.HSCode == "" && !item.Digital {
			names = append(names, item.Name)
		}
	}
	return names
}

func sumDutyFull(lines []lineTax) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.dutyFull)
	}
	return total.Round(2)
}

func (s *CalculatorService) complianceInfo(req domaintax.CalculationRequest, evals []relief.Evaluation, applied *relief.Evaluation, lines []lineTax) domaintax.ComplianceInfo {
	cur := req.Currency
	info := domaintax.ComplianceInfo{Regimes: make([]domaintax.RegimeInfo, 0, len(evals))}
	for _, ev := range evals {
		savings := valueobject.Zero(cur)
		if ev.InScope && ev.Applicable && ev.Policy.ExemptsDuty {
			savings = valueobject.FromDecimal(sumDutyFull(lines), cur)
		}
		info.Regimes = append(info.Regimes, domaintax.NewRegimeInfo(ev, savings))
	}

	if applied == nil {
		info.Status = domaintax.ComplianceNone
		return info
	}

	info.AppliedRegime = applied.Regime
	if applied.Policy.CollectsVATAtCheckout && req.DeliveryMode == shared.DeliveryModeDAP {
		info.Issues = append(info.Issues, fmt.Sprintf("%s requires VAT to be collected at checkout; ship DDP", applied.Regime))
	}
	if applied.CapExceeded {
		info.Issues = append(info.Issues, fmt.Sprintf("%s usage for the period would reach %s, above the %s cap",
			applied.Regime, applied.ProjectedUsage, applied.Threshold))
	}
	if missing := missingHSCodes(req.Items); len(missing) > 0 {
		info.Issues = append(info.Issues, fmt.Sprintf("%d item(s) have no HS code", len(missing)))
	}

	if len(info.Issues) == 0 {
		info.Status = domaintax.ComplianceFull
		info.FullyCompliant = true
	} else {
		info.Status = domaintax.CompliancePartial
	}
	return info
}

func (s *CalculatorService) recommendations(req domaintax.CalculationRequest, evals []relief.Evaluation, lines []lineTax, result *domaintax.CalculationResult) []domaintax.Recommendation {
	cur := req.Currency
	recs := []domaintax.Recommendation{}
	dutyFull := sumDutyFull(lines)
	savings := valueobject.FromDecimal(dutyFull, cur)

	// Splitting or repricing only pays off when duty would be saved. Orders
	// with no dutiable line (digital goods only) get no SPLIT_ORDER advice
	// even above the US threshold.
	for _, ev := range evals {
		if !ev.InScope || ev.Applicable || len(ev.ProhibitedItems) > 0 || !ev.ExceedsBy().IsPositive() || !dutyFull.IsPositive() {
			continue
		}
		switch ev.Regime {
		case ratepolicy.RegimeSection321:
			shipments := ev.OrderValue.Amount().Div(ev.Threshold.Amount()).Ceil()
			recs = append(recs, domaintax.Recommendation{
				Type:  domaintax.RecommendSplitOrder,
				Title: "Split the order under the de minimis threshold",
				Description: fmt.Sprintf("Order value %s exceeds %s. Shipping it as %s separate consignments on separate days, each at or below the threshold, avoids %s in duty.",
					ev.OrderValue, ev.Threshold, shipments.String(), savings),
				PotentialSavings: savings,
				Priority:         "HIGH",
			})
		case ratepolicy.RegimeIOSS, ratepolicy.RegimeUKLowValue:
			recs = append(recs, domaintax.Recommendation{
				Type:  domaintax.RecommendAdjustPrice,
				Title: "Adjust price to fit the low-value threshold",
				Description: fmt.Sprintf("Reducing the order value by %s %s keeps it within %s and avoids %s in duty.",
					ev.ExceedsBy().StringFixed(2), ev.Threshold.Currency(), ev.Threshold, savings),
				PotentialSavings: savings,
				Priority:         "MEDIUM",
			})
			if len(req.Items) > 1 {
				recs = append(recs, domaintax.Recommendation{
					Type:             domaintax.RecommendBatchOrders,
					Title:            "Batch items into low-value consignments",
					Description:      fmt.Sprintf("Ship the items as separate consignments each within %s to qualify for %s.", ev.Threshold, ev.Regime),
					PotentialSavings: savings,
					Priority:         "MEDIUM",
				})
			}
		}
	}

	if req.DeliveryMode == shared.DeliveryModeDAP && exceedsRatio(result.TotalTax, result.OrderValue, s.params.DDPRecommendationRatio) {
		fee := valueobject.Zero(cur)
		if e, ok := result.BreakdownEntry(ratepolicy.TaxKindHandlingFee); ok {
			fee = e.Amount
		}
		recs = append(recs, domaintax.Recommendation{
			Type:  domaintax.RecommendSwitchToDDP,
			Title: "Ship Delivered Duty Paid",
			Description: fmt.Sprintf("Import charges of %s are %s%% of the order value. Prepaying them avoids carrier handling fees and refused deliveries.",
				result.TotalTax, percentOf(result.TotalTax, result.OrderValue)),
			PotentialSavings: fee,
			Priority:         "MEDIUM",
		})
	}

	if missing := missingHSCodes(req.Items); len(missing) > 0 {
		recs = append(recs, domaintax.Recommendation{
			Type:             domaintax.RecommendAddHSCodes,
			Title:            "Classify items with HS codes",
			Description:      fmt.Sprintf("%d item(s) were taxed at default rates; an HS code may qualify them for a lower rate.", len(missing)),
			PotentialSavings: valueobject.Zero(cur),
			Priority:         "LOW",
		})
	}
	return recs
}

func (s *CalculatorService) warnings(req domaintax.CalculationRequest, evals []relief.Evaluation, applied *relief.Evaluation, result *domaintax.CalculationResult) []shared.Warning {
	var out []shared.Warning
	if exceedsRatio(result.TotalTax, result.OrderValue, s.params.HighTaxBurdenRatio) {
		out = append(out, shared.Warning{
			Code:    domaintax.WarnHighTaxBurden,
			Message: fmt.Sprintf("import charges are %s%% of the order value", percentOf(result.TotalTax, result.OrderValue)),
		})
	}
	for _, name := range missingHSCodes(req.Items) {
		out = append(out, shared.Warning{
			Code:    domaintax.WarnMissingHSCode,
			Message: fmt.Sprintf("item %q has no HS code; default rates were applied", name),
		})
	}
	for _, ev := range evals {
		if !ev.InScope {
			continue
		}
		if ev.CapExceeded {
			out = append(out, shared.Warning{
				Code:    domaintax.WarnAccumulationExceeded,
				Message: fmt.Sprintf("%s accumulated value %s exceeds %s for the period", ev.Regime, ev.ProjectedUsage, ev.Threshold),
			})
			continue
		}
		if ev.Usage != nil && ev.NearThreshold && ev.Policy.Window != ratepolicy.WindowDay {
			out = append(out, shared.Warning{
				Code: domaintax.WarnNearThreshold,
				Message: fmt.Sprintf("%s %s usage %s is approaching the %s threshold",
					ev.Regime, ev.Usage.Key.Period, ev.ProjectedUsage, ev.Threshold),
			})
		}
	}
	if applied != nil && applied.Policy.CollectsVATAtCheckout && req.DeliveryMode == shared.DeliveryModeDAP {
		out = append(out, shared.Warning{
			Code:    domaintax.WarnReliefNeedsDDP,
			Message: fmt.Sprintf("%s relief assumes VAT is charged at checkout; under DAP the buyer pays it on arrival", applied.Regime),
		})
	}
	return out
}

func exceedsRatio(tax, value valueobject.Money, ratio decimal.Decimal) bool {
	if !value.IsPositive() {
		return false
	}
	return tax.Amount().GreaterThan(value.Amount().Mul(ratio))
}

func percentOf(part, whole valueobject.Money) string {
	if !whole.IsPositive() {
		return "0"
	}
	return part.Amount().Mul(decimal.NewFromInt(100)).DivRound(whole.Amount(), 1).String()
}
