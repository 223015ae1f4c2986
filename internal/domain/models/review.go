package models

// VetoRule is a declarative condition that forces rejection when an A-level
// rule matches. Expression uses the closed rule grammar.
type VetoRule struct {
	Name       string   `json:"name" yaml:"name"`
	Expression string   `json:"expression" yaml:"expression"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Message    string   `json:"message" yaml:"message"`
}

// TriggeredRule records a rule that evaluated true.
type TriggeredRule struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// VetoOutcome is the result of checking a rule set against one snapshot.
type VetoOutcome struct {
	Triggered     bool            `json:"triggered"`
	Vetoes        []TriggeredRule `json:"vetoes,omitempty"`
	Advisories    []TriggeredRule `json:"advisories,omitempty"`
	Indeterminate []string        `json:"indeterminate,omitempty"`
	Warnings      []DataWarning   `json:"warnings,omitempty"`
}

// Counter-argument categories.
const (
	CategoryProfitability = "profitability"
	CategoryMoat          = "moat"
	CategoryValuation     = "valuation"
	CategoryCashQuality   = "cash-quality"
	CategoryStability     = "stability"
	CategoryDataQuality   = "data-quality"
)

// Evidence is one literal metric value backing a claim.
type Evidence struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// CounterArgument is a qualitative finding against the investment thesis.
type CounterArgument struct {
	Severity Severity   `json:"severity"`
	Category string     `json:"category"`
	Finding  string     `json:"finding"`
	Claim    string     `json:"claim"`
	Evidence []Evidence `json:"evidence,omitempty"`
	Impact   string     `json:"impact"`
}

// SeverityCounts tallies findings per tier.
type SeverityCounts struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

// CountSeverities tallies args by severity.
func CountSeverities(args []CounterArgument) SeverityCounts {
	var c SeverityCounts
	for _, a := range args {
		switch a.Severity {
		case SeverityA:
			c.A++
		case SeverityB:
			c.B++
		case SeverityC:
			c.C++
		}
	}
	return c
}

// StressScenario perturbs the base valuation inputs. Factors multiply
// (and must lie in (0,1]); deltas add (and must be non-negative). A zero
// factor means "leave unchanged".
type StressScenario struct {
	Name                     string  `json:"name" yaml:"name" validate:"required"`
	CashFlowFactor           float64 `json:"cash_flow_factor,omitempty" yaml:"cash_flow_factor" validate:"gte=0,lte=1"`
	GrowthFactor             float64 `json:"growth_factor,omitempty" yaml:"growth_factor" validate:"gte=0,lte=1"`
	ExitMultipleFactor       float64 `json:"exit_multiple_factor,omitempty" yaml:"exit_multiple_factor" validate:"gte=0,lte=1"`
	DiscountDelta            float64 `json:"discount_delta,omitempty" yaml:"discount_delta" validate:"gte=0,lte=0.5"`
	MaintenanceCapexIncrease float64 `json:"maintenance_capex_increase,omitempty" yaml:"maintenance_capex_increase" validate:"gte=0,lte=10"`
}

// StressResult compares a stressed base case against the MOS floor.
type StressResult struct {
	Scenario       string  `json:"scenario"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	MarginOfSafety float64 `json:"margin_of_safety"`
	Floor          float64 `json:"floor"`
	Passed         bool    `json:"passed"`
	Combined       bool    `json:"combined,omitempty"`
	Note           string  `json:"note,omitempty"`
}
