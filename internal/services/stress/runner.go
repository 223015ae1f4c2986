// Package stress re-runs the base valuation under adverse perturbations.
package stress

import (
	"fmt"
	"math"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/valuation"
	"Moatline/pkg/validate"
)

// Default scenario names.
const (
	ScenarioMarginCompression   = "margin_compression"
	ScenarioGrowthSlowdown      = "growth_slowdown"
	ScenarioCapexSurge          = "capex_surge"
	ScenarioMultipleContraction = "multiple_contraction"
	ScenarioCombinedWorstCase   = "combined_worst_case"
)

// DefaultScenarios returns the standard adverse cases in report order.
func DefaultScenarios() []models.StressScenario {
	return []models.StressScenario{
		{Name: ScenarioMarginCompression, CashFlowFactor: 0.70},
		{Name: ScenarioGrowthSlowdown, GrowthFactor: 0.50},
		{Name: ScenarioCapexSurge, MaintenanceCapexIncrease: 0.50},
		{Name: ScenarioMultipleContraction, ExitMultipleFactor: 0.80},
		{
			Name:                     ScenarioCombinedWorstCase,
			CashFlowFactor:           0.70,
			GrowthFactor:             0.50,
			MaintenanceCapexIncrease: 0.50,
			ExitMultipleFactor:       0.80,
		},
	}
}

// Runner applies a fixed list of scenarios. Safe for concurrent use.
type Runner struct {
	scenarios []models.StressScenario
	floor     float64
}

type Option func(*Runner)

func WithScenarios(s []models.StressScenario) Option {
	return func(r *Runner) {
		r.scenarios = append([]models.StressScenario(nil), s...)
	}
}

// WithFloor sets the minimum margin of safety a stressed case must keep.
func WithFloor(f float64) Option {
	return func(r *Runner) {
		r.floor = f
	}
}

// New validates the scenario list. Malformed scenarios are a ConfigurationError.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{scenarios: DefaultScenarios()}
	for _, o := range opts {
		o(r)
	}

	if math.IsNaN(r.floor) || r.floor < -1 || r.floor >= 1 {
		return nil, &models.ConfigurationError{Field: "stress.floor", Reason: "must lie in [-1, 1)"}
	}
	seen := make(map[string]struct{}, len(r.scenarios))
	for i, s := range r.scenarios {
		field := fmt.Sprintf("stress.scenarios[%d]", i)
		if vs := validate.Struct(s); len(vs) > 0 {
			return nil, &models.ConfigurationError{Field: field + "." + vs[0].Field, Reason: vs[0].Message}
		}
		if _, dup := seen[s.Name]; dup {
			return nil, &models.ConfigurationError{Field: field + ".name", Reason: "duplicate scenario " + s.Name}
		}
		seen[s.Name] = struct{}{}
		if dimensions(s) == 0 {
			return nil, &models.ConfigurationError{Field: field, Reason: "scenario " + s.Name + " perturbs nothing"}
		}
	}
	return r, nil
}

func (r *Runner) Scenarios() []models.StressScenario {
	return append([]models.StressScenario(nil), r.scenarios...)
}

func (r *Runner) Floor() float64 { return r.floor }

// Run values every scenario in order. A scenario perturbing more than one
// input is combined; its margin of safety never exceeds that of any
// single-input scenario it contains.
func (r *Runner) Run(s models.Snapshot, base models.ValuationAssumptions) ([]models.StressResult, error) {
	if err := valuation.CheckAssumptions(base); err != nil {
		return nil, err
	}
	in, err := valuation.ReadInputs(s)
	if err != nil {
		return nil, err
	}
	mc := maintenanceCapex(s, in.Baseline)

	results := make([]models.StressResult, len(r.scenarios))
	for i, sc := range r.scenarios {
		iv, err := stressedValue(in, mc, base, sc)
		if err != nil {
			return nil, fmt.Errorf("stress %s: %w", sc.Name, err)
		}
		results[i] = models.StressResult{
			Scenario:       sc.Name,
			IntrinsicValue: iv,
			MarginOfSafety: valuation.MarginOfSafety(iv, in.Price),
			Floor:          r.floor,
			Combined:       isCombined(sc),
		}
	}

	for i, sc := range r.scenarios {
		if !results[i].Combined {
			continue
		}
		dims := dimensions(sc)
		for j, other := range r.scenarios {
			if results[j].Combined || dimensions(other)&^dims != 0 {
				continue
			}
			if results[j].MarginOfSafety < results[i].MarginOfSafety {
				results[i].MarginOfSafety = results[j].MarginOfSafety
				results[i].IntrinsicValue = results[j].IntrinsicValue
				results[i].Note = "floored to " + other.Name
			}
		}
	}

	for i := range results {
		results[i].Passed = results[i].MarginOfSafety >= r.floor
	}
	return results, nil
}

// AnyFailed reports whether at least one result is below its floor.
func AnyFailed(results []models.StressResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
