// Package pipeline runs the staged analysis: valuation, veto rules, stress
// tests, counter-arguments, verdict and sizing. Every stage is synchronous
// and pure, so one Pipeline may serve many goroutines.
package pipeline

import (
	"time"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/adversarial"
	"Moatline/internal/services/decision"
	"Moatline/internal/services/rules"
	"Moatline/internal/services/sizing"
	"Moatline/internal/services/stress"
	"Moatline/internal/services/valuation"
)

// Observer is told about each stage as it finishes.
type Observer func(stage string, elapsed time.Duration, err error)

// Request is one analysis. Nil overrides fall back to the pipeline defaults.
type Request struct {
	Snapshot    models.Snapshot
	Assumptions *models.ValuationAssumptions
	Constraints *models.PositionConstraints
}

type Pipeline struct {
	valuator    *valuation.Valuator
	rules       *rules.RuleSet
	stress      *stress.Runner
	generator   *adversarial.Generator
	sizer       *sizing.Sizer
	decider     *decision.Synthesizer
	assumptions models.ValuationAssumptions
	constraints models.PositionConstraints
	sensitivity bool
	observer    Observer
	config      string
}

type Option func(*Pipeline)

func WithValuator(v *valuation.Valuator) Option {
	return func(p *Pipeline) { p.valuator = v }
}

func WithStressRunner(r *stress.Runner) Option {
	return func(p *Pipeline) { p.stress = r }
}

func WithGenerator(g *adversarial.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

func WithSynthesizer(d *decision.Synthesizer) Option {
	return func(p *Pipeline) { p.decider = d }
}

func WithConstraints(c models.PositionConstraints) Option {
	return func(p *Pipeline) { p.constraints = c }
}

// WithSensitivity toggles the sensitivity grid on reports.
func WithSensitivity(on bool) Option {
	return func(p *Pipeline) { p.sensitivity = on }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New builds a pipeline around a compiled rule set and base assumptions.
// Stages not supplied by options use their defaults.
func New(rs *rules.RuleSet, base models.ValuationAssumptions, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		rules:       rs,
		assumptions: base,
		constraints: sizing.DefaultConstraints(),
		sizer:       sizing.New(),
		decider:     decision.NewSynthesizer(),
		sensitivity: true,
	}
	for _, o := range opts {
		o(p)
	}

	if err := valuation.CheckAssumptions(base); err != nil {
		return nil, err
	}
	if err := sizing.CheckConstraints(p.constraints); err != nil {
		return nil, err
	}
	if p.valuator == nil {
		p.valuator = valuation.New()
	}
	if p.stress == nil {
		r, err := stress.New()
		if err != nil {
			return nil, err
		}
		p.stress = r
	}
	if p.generator == nil {
		g, err := adversarial.New()
		if err != nil {
			return nil, err
		}
		p.generator = g
	}
	if p.decider == nil {
		p.decider = decision.NewSynthesizer()
	}

	growth, discount, multiple := p.valuator.SensitivitySteps()
	digest, err := stageConfig{
		Rules:        rs.Rules(),
		Triggers:     p.generator.Triggers(),
		Scenarios:    p.stress.Scenarios(),
		Floor:        p.stress.Floor(),
		Sensitivity:  p.sensitivity,
		GrowthStep:   growth,
		DiscountStep: discount,
		MultipleStep: multiple,
		Transitions:  p.decider.Transitions(),
	}.digest()
	if err != nil {
		return nil, &models.ConfigurationError{Field: "pipeline", Reason: err.Error()}
	}
	p.config = digest
	return p, nil
}

// ReportID is the deterministic ID Analyze assigns to req.
func (p *Pipeline) ReportID(req Request) string {
	a, c := p.Resolve(req)
	return ReportID(req.Snapshot, a, c, p.config)
}

// Assumptions returns the default base-case assumptions.
func (p *Pipeline) Assumptions() models.ValuationAssumptions { return p.assumptions }

// Constraints returns the default sizing constraints.
func (p *Pipeline) Constraints() models.PositionConstraints { return p.constraints }

// Rules returns the configured veto rules.
func (p *Pipeline) Rules() []models.VetoRule { return p.rules.Rules() }

// Transitions returns the decision table the pipeline decides with.
func (p *Pipeline) Transitions() []decision.Transition { return p.decider.Transitions() }

// Resolve fills nil overrides with the pipeline defaults.
func (p *Pipeline) Resolve(req Request) (models.ValuationAssumptions, models.PositionConstraints) {
	a, c := p.assumptions, p.constraints
	if req.Assumptions != nil {
		a = *req.Assumptions
	}
	if req.Constraints != nil {
		c = *req.Constraints
	}
	return a, c
}

// Analyze runs every stage. A fatal error is a *models.StageError naming the
// stage; partial results never escape.
func (p *Pipeline) Analyze(req Request) (models.AnalysisReport, error) {
	s := req.Snapshot
	a, c := p.Resolve(req)
	ticker := s.Ticker()

	report := models.AnalysisReport{
		ID:     ReportID(s, a, c, p.config),
		Ticker: ticker,
		Sector: s.Sector(),
	}

	var err error
	report.Valuation, err = timed(p, models.StageValuation, func() (models.ValuationResult, error) {
		return p.valuator.Value(s, a)
	})
	if err != nil {
		return models.AnalysisReport{}, &models.StageError{Stage: models.StageValuation, Ticker: ticker, Err: err}
	}
	var sensWarnings []models.DataWarning
	if p.sensitivity {
		report.Sensitivity, sensWarnings = p.sensitivityGrid(s, a)
	}

	enriched := s.With(report.Valuation.Derived())
	report.Veto, _ = timed(p, models.StageVeto, func() (models.VetoOutcome, error) {
		return p.rules.CheckVeto(enriched), nil
	})

	report.StressResults, err = timed(p, models.StageStress, func() ([]models.StressResult, error) {
		return p.stress.Run(s, a)
	})
	if err != nil {
		return models.AnalysisReport{}, &models.StageError{Stage: models.StageStress, Ticker: ticker, Err: err}
	}

	var advWarnings []models.DataWarning
	report.CounterArguments, _ = timed(p, models.StageAdversarial, func() ([]models.CounterArgument, error) {
		args, ws := p.generator.Generate(s, report.Valuation, report.StressResults)
		advWarnings = ws
		return args, nil
	})
	if report.CounterArguments == nil {
		report.CounterArguments = []models.CounterArgument{}
	}

	report.Verdict, _ = timed(p, models.StageDecision, func() (models.RecommendationVerdict, error) {
		in := decision.Inputs(report.Veto, report.CounterArguments, stress.AnyFailed(report.StressResults))
		return p.decider.Decide(in), nil
	})

	report.Sizing, err = timed(p, models.StageSizing, func() (models.PositionSizingResult, error) {
		return p.sizer.Size(report.Verdict.Verdict, report.Valuation, s, report.CounterArguments, c)
	})
	if err != nil {
		return models.AnalysisReport{}, &models.StageError{Stage: models.StageSizing, Ticker: ticker, Err: err}
	}
	report.Monitoring = sizing.Monitor(report.Verdict.Verdict, report.Valuation, report.CounterArguments, c)

	report.Warnings = mergeWarnings(s.Warnings(), report.Valuation.Warnings, report.Veto.Warnings, sensWarnings, advWarnings)
	return report, nil
}

// sensitivityGrid reports a failed grid as a warning; the grid is advisory.
func (p *Pipeline) sensitivityGrid(s models.Snapshot, a models.ValuationAssumptions) ([]models.SensitivityCell, []models.DataWarning) {
	cells, err := p.valuator.Sensitivity(s, a)
	if err != nil {
		return nil, []models.DataWarning{{
			Severity: models.SeverityC,
			Category: models.CategoryDataQuality,
			Source:   "sensitivity",
			Message:  err.Error(),
		}}
	}
	return cells, nil
}

func timed[T any](p *Pipeline, stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	if p.observer != nil {
		p.observer(stage, time.Since(start), err)
	}
	return out, err
}

func mergeWarnings(groups ...[]models.DataWarning) []models.DataWarning {
	var out []models.DataWarning
	seen := make(map[models.DataWarning]struct{})
	for _, g := range groups {
		for _, w := range g {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
