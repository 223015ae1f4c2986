// Package valuation values a company under bear, base and bull assumptions.
package valuation

import (
	"errors"
	"fmt"
	"math"

	"Moatline/internal/domain/models"
	"Moatline/pkg/validate"
)

// Valuator runs the three-scenario DCF. It holds only configuration and is
// safe for concurrent use.
type Valuator struct {
	growthStep   float64
	discountStep float64
	multipleStep float64
}

type Option func(*Valuator)

// WithSensitivitySteps overrides the sensitivity grid deltas.
func WithSensitivitySteps(growth, discount, multiple float64) Option {
	return func(v *Valuator) {
		v.growthStep = growth
		v.discountStep = discount
		v.multipleStep = multiple
	}
}

func New(opts ...Option) *Valuator {
	v := &Valuator{
		growthStep:   0.02,
		discountStep: 0.01,
		multipleStep: 2,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// SensitivitySteps returns the growth, discount and exit multiple deltas.
func (v *Valuator) SensitivitySteps() (growth, discount, multiple float64) {
	return v.growthStep, v.discountStep, v.multipleStep
}

// Inputs are the three snapshot fields the valuation cannot do without.
type Inputs struct {
	Baseline float64
	Price    float64
	Shares   float64
}

// ReadInputs extracts and checks the required snapshot fields.
func ReadInputs(s models.Snapshot) (Inputs, error) {
	var in Inputs
	var ok bool
	if in.Baseline, ok = s.Get(models.MetricOwnerEarnings); !ok {
		return Inputs{}, &models.InputError{Field: models.MetricOwnerEarnings, Reason: "missing"}
	}
	if in.Price, ok = s.Get(models.MetricCurrentPrice); !ok {
		return Inputs{}, &models.InputError{Field: models.MetricCurrentPrice, Reason: "missing"}
	}
	if in.Price <= 0 {
		return Inputs{}, &models.InputError{Field: models.MetricCurrentPrice, Reason: "must be positive"}
	}
	if in.Shares, ok = s.Get(models.MetricSharesOutstanding); !ok {
		return Inputs{}, &models.InputError{Field: models.MetricSharesOutstanding, Reason: "missing"}
	}
	if in.Shares <= 0 {
		return Inputs{}, &models.InputError{Field: models.MetricSharesOutstanding, Reason: "must be positive"}
	}
	return in, nil
}

// CheckAssumptions reports the first malformed field as a ConfigurationError.
func CheckAssumptions(a models.ValuationAssumptions) error {
	rates := []struct {
		name string
		v    float64
	}{
		{"growth_rate", a.GrowthRate},
		{"discount_rate", a.DiscountRate},
		{"terminal_growth_rate", a.TerminalGrowthRate},
		{"exit_multiple", a.ExitMultiple},
	}
	for _, r := range rates {
		if math.IsNaN(r.v) || math.IsInf(r.v, 0) {
			return &models.ConfigurationError{Field: r.name, Reason: "must be finite"}
		}
	}
	if a.Horizon <= 0 {
		return &models.ConfigurationError{Field: "horizon", Reason: "must be at least 1 year"}
	}
	if vs := validate.Struct(a); len(vs) > 0 {
		return &models.ConfigurationError{Field: vs[0].Field, Reason: vs[0].Message}
	}
	if a.TerminalMethod == models.TerminalExitMultiple && a.ExitMultiple <= 0 {
		return &models.ConfigurationError{Field: "exit_multiple", Reason: "must be positive for exit_multiple terminal method"}
	}
	return nil
}

// Value runs bear, base and bull. A base failure is returned as the error;
// a bear or bull failure leaves that scenario nil and adds a warning.
func (v *Valuator) Value(s models.Snapshot, base models.ValuationAssumptions) (models.ValuationResult, error) {
	if err := CheckAssumptions(base); err != nil {
		return models.ValuationResult{}, err
	}
	in, err := ReadInputs(s)
	if err != nil {
		return models.ValuationResult{}, err
	}

	res := models.ValuationResult{
		Ticker:   s.Ticker(),
		Baseline: in.Baseline,
		Price:    in.Price,
		Shares:   in.Shares,
	}

	baseVal, err := Compute(in.Baseline, in.Price, in.Shares, base, models.ScenarioBase)
	if err != nil {
		return models.ValuationResult{}, err
	}
	res.Base = baseVal

	for _, sc := range []models.Scenario{models.ScenarioBear, models.ScenarioBull} {
		sv, err := Compute(in.Baseline, in.Price, in.Shares, base.ForScenario(sc), sc)
		if err != nil {
			res.Warnings = append(res.Warnings, scenarioWarning(sc, err))
			continue
		}
		if sc == models.ScenarioBear {
			res.Bear = &sv
		} else {
			res.Bull = &sv
		}
	}
	return res, nil
}

// ValueScenario values a single scenario with explicit assumptions.
func (v *Valuator) ValueScenario(s models.Snapshot, a models.ValuationAssumptions, scenario models.Scenario) (models.ScenarioValuation, error) {
	if err := CheckAssumptions(a); err != nil {
		return models.ScenarioValuation{}, err
	}
	in, err := ReadInputs(s)
	if err != nil {
		return models.ScenarioValuation{}, err
	}
	return Compute(in.Baseline, in.Price, in.Shares, a, scenario)
}

func scenarioWarning(sc models.Scenario, err error) models.DataWarning {
	msg := err.Error()
	var ve *models.ValuationError
	if errors.As(err, &ve) {
		msg = fmt.Sprintf("%s scenario skipped: %s", sc, ve.Reason)
	}
	return models.DataWarning{
		Severity: models.SeverityB,
		Category: models.CategoryDataQuality,
		Source:   "valuation",
		Message:  msg,
	}
}
