package valuation

import "Moatline/internal/domain/models"

// Sensitivity dimensions.
const (
	DimensionGrowth       = "growth_rate"
	DimensionDiscount     = "discount_rate"
	DimensionExitMultiple = "exit_multiple"
)

// Sensitivity perturbs one base assumption at a time. Cells that cannot be
// valued (for example a discount rate pushed below terminal growth) are
// left out.
func (v *Valuator) Sensitivity(s models.Snapshot, base models.ValuationAssumptions) ([]models.SensitivityCell, error) {
	if err := CheckAssumptions(base); err != nil {
		return nil, err
	}
	in, err := ReadInputs(s)
	if err != nil {
		return nil, err
	}

	type step struct {
		dim   string
		delta float64
		apply func(models.ValuationAssumptions, float64) models.ValuationAssumptions
	}
	steps := []step{
		{DimensionGrowth, -v.growthStep, shiftGrowth},
		{DimensionGrowth, v.growthStep, shiftGrowth},
		{DimensionDiscount, -v.discountStep, shiftDiscount},
		{DimensionDiscount, v.discountStep, shiftDiscount},
	}
	if base.TerminalMethod == models.TerminalExitMultiple {
		steps = append(steps,
			step{DimensionExitMultiple, -v.multipleStep, shiftMultiple},
			step{DimensionExitMultiple, v.multipleStep, shiftMultiple},
		)
	}

	cells := make([]models.SensitivityCell, 0, len(steps))
	for _, st := range steps {
		a := st.apply(base, st.delta)
		if a.TerminalMethod == models.TerminalExitMultiple && a.ExitMultiple <= 0 {
			continue
		}
		sv, err := Compute(in.Baseline, in.Price, in.Shares, a, models.ScenarioBase)
		if err != nil {
			continue
		}
		cells = append(cells, models.SensitivityCell{
			Dimension:      st.dim,
			Delta:          st.delta,
			IntrinsicValue: sv.IntrinsicValuePerShare,
			MarginOfSafety: sv.MarginOfSafety,
		})
	}
	return cells, nil
}

func shiftGrowth(a models.ValuationAssumptions, d float64) models.ValuationAssumptions {
	a.GrowthRate += d
	return a
}

func shiftDiscount(a models.ValuationAssumptions, d float64) models.ValuationAssumptions {
	a.DiscountRate += d
	return a
}

func shiftMultiple(a models.ValuationAssumptions, d float64) models.ValuationAssumptions {
	a.ExitMultiple += d
	return a
}
