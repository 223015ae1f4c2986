package models

import "math"

// TerminalMethod selects how value beyond the projection horizon is estimated.
type TerminalMethod string

const (
	TerminalPerpetuityGrowth TerminalMethod = "perpetuity_growth"
	TerminalExitMultiple     TerminalMethod = "exit_multiple"
)

// Scenario names one of the three valuation cases.
type Scenario string

const (
	ScenarioBear Scenario = "bear"
	ScenarioBase Scenario = "base"
	ScenarioBull Scenario = "bull"
)

// Scenarios returns the valuation cases in reporting order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioBear, ScenarioBase, ScenarioBull}
}

// Scenario transforms applied to the base case.
const (
	BearGrowthFactor  = 0.5
	BearDiscountDelta = 0.02
	BullGrowthFactor  = 1.5
	BullDiscountDelta = -0.01
)

// ValuationAssumptions drive one DCF run. Rates are decimals (0.10 = 10%).
type ValuationAssumptions struct {
	GrowthRate         float64        `json:"growth_rate" yaml:"growth_rate" validate:"gt=-1"`
	DiscountRate       float64        `json:"discount_rate" yaml:"discount_rate" validate:"gt=-1"`
	TerminalGrowthRate float64        `json:"terminal_growth_rate" yaml:"terminal_growth_rate" validate:"gt=-1"`
	Horizon            int            `json:"horizon" yaml:"horizon" validate:"gte=1,lte=50"`
	TerminalMethod     TerminalMethod `json:"terminal_method" yaml:"terminal_method" validate:"oneof=perpetuity_growth exit_multiple"`
	ExitMultiple       float64        `json:"exit_multiple" yaml:"exit_multiple" validate:"gte=0"`
}

// ForScenario derives the bear or bull case from a base case. Base returns a
// unchanged. Growth factors scale |g|, so bear growth is never above base and
// bull growth never below it, negative base growth included.
func (a ValuationAssumptions) ForScenario(s Scenario) ValuationAssumptions {
	out := a
	g := math.Abs(a.GrowthRate)
	switch s {
	case ScenarioBear:
		out.GrowthRate = a.GrowthRate - g*(1-BearGrowthFactor)
		out.DiscountRate = a.DiscountRate + BearDiscountDelta
	case ScenarioBull:
		out.GrowthRate = a.GrowthRate + g*(BullGrowthFactor-1)
		out.DiscountRate = a.DiscountRate + BullDiscountDelta
	}
	return out
}
