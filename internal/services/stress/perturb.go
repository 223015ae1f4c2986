package stress

import (
	"math"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/valuation"
)

const (
	dimCashFlow = 1 << iota
	dimGrowth
	dimMultiple
	dimDiscount
	dimCapex
)

func dimensions(s models.StressScenario) int {
	d := 0
	if s.CashFlowFactor > 0 && s.CashFlowFactor < 1 {
		d |= dimCashFlow
	}
	if s.GrowthFactor > 0 && s.GrowthFactor < 1 {
		d |= dimGrowth
	}
	if s.ExitMultipleFactor > 0 && s.ExitMultipleFactor < 1 {
		d |= dimMultiple
	}
	if s.DiscountDelta > 0 {
		d |= dimDiscount
	}
	if s.MaintenanceCapexIncrease > 0 {
		d |= dimCapex
	}
	return d
}

func isCombined(s models.StressScenario) bool {
	d := dimensions(s)
	return d&(d-1) != 0
}

// adverse shrinks x by (1-f) of its magnitude, so positive values fall and
// negative values become more negative.
func adverse(x, f float64) float64 {
	if f <= 0 || f >= 1 {
		return x
	}
	return x - math.Abs(x)*(1-f)
}

// maintenanceCapex reads the reported figure, else 30% of CFO, else backs it
// out of owner earnings (OE = 0.7 CFO, so capex = 3/7 OE).
func maintenanceCapex(s models.Snapshot, ownerEarnings float64) float64 {
	if v, ok := s.Get(models.MetricMaintenanceCapex); ok {
		return math.Abs(v)
	}
	if cfo, ok := s.Get(models.MetricCFO); ok {
		return math.Abs(cfo * valuation.DefaultMaintenanceOfCFO)
	}
	share := valuation.DefaultMaintenanceOfCFO
	return math.Abs(ownerEarnings) * share / (1 - share)
}

func stressedValue(in valuation.Inputs, mc float64, base models.ValuationAssumptions, sc models.StressScenario) (float64, error) {
	baseline := adverse(in.Baseline, sc.CashFlowFactor)
	if sc.MaintenanceCapexIncrease > 0 {
		baseline -= mc * sc.MaintenanceCapexIncrease
	}

	a := base
	if sc.GrowthFactor > 0 && sc.GrowthFactor < 1 {
		if baseline >= 0 {
			a.GrowthRate = adverse(a.GrowthRate, sc.GrowthFactor)
		} else {
			// losses compound faster with higher growth
			a.GrowthRate += math.Abs(a.GrowthRate) * (1 - sc.GrowthFactor)
		}
	}
	a.DiscountRate += sc.DiscountDelta

	sv, err := valuation.Compute(baseline, in.Price, in.Shares, a, models.ScenarioBase)
	if err != nil {
		return 0, err
	}
	tv := adverse(sv.DiscountedTerminalValue, sc.ExitMultipleFactor)
	return (sv.DiscountedSum + tv) / in.Shares, nil
}
