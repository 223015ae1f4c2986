package models

// ScenarioValuation is the DCF outcome for one scenario.
type ScenarioValuation struct {
	Scenario                Scenario             `json:"scenario"`
	Assumptions             ValuationAssumptions `json:"assumptions"`
	ProjectedCashFlows      []float64            `json:"projected_cash_flows"`
	DiscountedCashFlows     []float64            `json:"discounted_cash_flows"`
	TerminalValue           float64              `json:"terminal_value"`
	DiscountedTerminalValue float64              `json:"discounted_terminal_value"`
	DiscountedSum           float64              `json:"discounted_sum"`
	IntrinsicValuePerShare  float64              `json:"intrinsic_value_per_share"`
	MarginOfSafety          float64              `json:"margin_of_safety"`
}

// ValuationResult holds the three scenarios. Bear and Bull are nil when they
// failed on their own; the reason is in Warnings.
type ValuationResult struct {
	Ticker   string             `json:"ticker"`
	Baseline float64            `json:"baseline"`
	Price    float64            `json:"price"`
	Shares   float64            `json:"shares"`
	Bear     *ScenarioValuation `json:"bear,omitempty"`
	Base     ScenarioValuation  `json:"base"`
	Bull     *ScenarioValuation `json:"bull,omitempty"`
	Warnings []DataWarning      `json:"warnings,omitempty"`
}

// Derived exposes the valuation as rule-engine metrics.
func (v ValuationResult) Derived() map[string]float64 {
	m := map[string]float64{
		MetricMOS:            v.Base.MarginOfSafety,
		MetricIntrinsicValue: v.Base.IntrinsicValuePerShare,
	}
	if v.Bear != nil {
		m[MetricMOSBear] = v.Bear.MarginOfSafety
		m[MetricIntrinsicValueBear] = v.Bear.IntrinsicValuePerShare
	}
	if v.Bull != nil {
		m[MetricMOSBull] = v.Bull.MarginOfSafety
		m[MetricIntrinsicValueBull] = v.Bull.IntrinsicValuePerShare
	}
	return m
}

// SensitivityCell is one perturbed base-case run.
type SensitivityCell struct {
	Dimension      string  `json:"dimension"`
	Delta          float64 `json:"delta"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	MarginOfSafety float64 `json:"margin_of_safety"`
}
