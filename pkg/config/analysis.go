package config

import (
	"Moatline/internal/domain/models"
	"Moatline/internal/services/adversarial"
	"Moatline/internal/services/pipeline"
	"Moatline/internal/services/rules"
	"Moatline/internal/services/stress"
	"Moatline/internal/services/valuation"
)

// Analysis is the declarative form of the review pipeline. Empty lists
// fall back to the built-in rule, trigger and scenario sets.
type Analysis struct {
	Assumptions  *models.ValuationAssumptions `yaml:"assumptions"`
	Constraints  models.PositionConstraints   `yaml:"constraints"`
	VetoRules    []models.VetoRule            `yaml:"veto_rules"`
	Triggers     []adversarial.Trigger        `yaml:"triggers"`
	Stress       Stress                       `yaml:"stress"`
	Rules        RuleLimits                   `yaml:"rules"`
	Sensitivity  Sensitivity                  `yaml:"sensitivity"`
	BatchWorkers int                          `yaml:"batch_workers" default:"4" validate:"gte=1,lte=64"`
}

type Stress struct {
	Floor     float64                 `yaml:"floor"`
	Scenarios []models.StressScenario `yaml:"scenarios"`
}

type RuleLimits struct {
	MaxLength  int      `yaml:"max_length" default:"256" validate:"gte=16,lte=4096"`
	MaxClauses int      `yaml:"max_clauses" default:"8" validate:"gte=1,lte=64"`
	Metrics    []string `yaml:"extra_metrics"`
}

type Sensitivity struct {
	Enabled      bool    `yaml:"enabled" default:"true"`
	GrowthStep   float64 `yaml:"growth_step" default:"0.02" validate:"gt=0,lt=1"`
	DiscountStep float64 `yaml:"discount_step" default:"0.01" validate:"gt=0,lt=1"`
	MultipleStep float64 `yaml:"multiple_step" default:"2" validate:"gt=0"`
}

// DefaultAssumptions is the base case used when none is configured.
func DefaultAssumptions() models.ValuationAssumptions {
	return models.ValuationAssumptions{
		GrowthRate:         0.05,
		DiscountRate:       0.10,
		TerminalGrowthRate: 0.025,
		Horizon:            10,
		TerminalMethod:     models.TerminalPerpetuityGrowth,
		ExitMultiple:       15,
	}
}

// Built holds the compiled analysis components.
type Built struct {
	Evaluator *rules.Evaluator
	Pipeline  *pipeline.Pipeline
}

// Build compiles rules, triggers and scenarios and assembles the pipeline.
// Malformed entries surface as RuleParseError or ConfigurationError.
func (a Analysis) Build(opts ...pipeline.Option) (*Built, error) {
	known := append(models.KnownMetrics(), a.Rules.Metrics...)
	ev := rules.NewEvaluator(
		rules.WithKnownMetrics(known...),
		rules.WithLimits(a.Rules.MaxLength, a.Rules.MaxClauses),
	)

	vetoes := a.VetoRules
	if len(vetoes) == 0 {
		vetoes = rules.DefaultVetoRules()
	}
	rs, err := ev.Compile(vetoes)
	if err != nil {
		return nil, err
	}

	genOpts := []adversarial.Option{adversarial.WithEvaluator(ev)}
	if len(a.Triggers) > 0 {
		genOpts = append(genOpts, adversarial.WithTriggers(a.Triggers))
	}
	gen, err := adversarial.New(genOpts...)
	if err != nil {
		return nil, err
	}

	stressOpts := []stress.Option{stress.WithFloor(a.Stress.Floor)}
	if len(a.Stress.Scenarios) > 0 {
		stressOpts = append(stressOpts, stress.WithScenarios(a.Stress.Scenarios))
	}
	runner, err := stress.New(stressOpts...)
	if err != nil {
		return nil, err
	}

	base := DefaultAssumptions()
	if a.Assumptions != nil {
		base = *a.Assumptions
	}
	s := a.Sensitivity
	popts := []pipeline.Option{
		pipeline.WithValuator(valuation.New(valuation.WithSensitivitySteps(s.GrowthStep, s.DiscountStep, s.MultipleStep))),
		pipeline.WithGenerator(gen),
		pipeline.WithStressRunner(runner),
		pipeline.WithConstraints(a.Constraints),
		pipeline.WithSensitivity(s.Enabled),
	}
	p, err := pipeline.New(rs, base, append(popts, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Built{Evaluator: ev, Pipeline: p}, nil
}
