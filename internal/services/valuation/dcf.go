package valuation

import (
	"math"

	"Moatline/internal/domain/models"
)

// Compute runs one discounted cash-flow projection. It has no notion of
// snapshots and is shared with the stress runner.
func Compute(baseline, price, shares float64, a models.ValuationAssumptions, scenario models.Scenario) (models.ScenarioValuation, error) {
	if a.TerminalMethod == models.TerminalPerpetuityGrowth && a.DiscountRate <= a.TerminalGrowthRate {
		return models.ScenarioValuation{}, &models.ValuationError{Scenario: scenario, Reason: "non-convergent terminal value"}
	}

	out := models.ScenarioValuation{
		Scenario:            scenario,
		Assumptions:         a,
		ProjectedCashFlows:  make([]float64, a.Horizon),
		DiscountedCashFlows: make([]float64, a.Horizon),
	}

	for t := 1; t <= a.Horizon; t++ {
		cf := baseline * math.Pow(1+a.GrowthRate, float64(t))
		pv := cf / math.Pow(1+a.DiscountRate, float64(t))
		out.ProjectedCashFlows[t-1] = cf
		out.DiscountedCashFlows[t-1] = pv
		out.DiscountedSum += pv
	}

	last := out.ProjectedCashFlows[a.Horizon-1]
	switch a.TerminalMethod {
	case models.TerminalExitMultiple:
		out.TerminalValue = last * a.ExitMultiple
	default:
		out.TerminalValue = last * (1 + a.TerminalGrowthRate) / (a.DiscountRate - a.TerminalGrowthRate)
	}
	out.DiscountedTerminalValue = out.TerminalValue / math.Pow(1+a.DiscountRate, float64(a.Horizon))

	iv := (out.DiscountedSum + out.DiscountedTerminalValue) / shares
	if math.IsNaN(iv) || math.IsInf(iv, 0) {
		return models.ScenarioValuation{}, &models.ValuationError{Scenario: scenario, Reason: "non-finite intrinsic value"}
	}
	out.IntrinsicValuePerShare = iv
	out.MarginOfSafety = MarginOfSafety(iv, price)
	return out, nil
}

// MarginOfSafety is (iv - price) / iv, clamped to [-1, 1). A non-positive
// intrinsic value yields -1.
func MarginOfSafety(iv, price float64) float64 {
	if iv <= 0 || math.IsNaN(iv) {
		return -1
	}
	mos := (iv - price) / iv
	if mos < -1 {
		return -1
	}
	return mos
}
