package pipeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/adversarial"
	"Moatline/internal/services/decision"
	"Moatline/internal/services/rules"
	"Moatline/internal/services/stress"
	"Moatline/internal/services/valuation"
)

func baseAssumptions() models.ValuationAssumptions {
	return models.ValuationAssumptions{
		GrowthRate:         0.05,
		DiscountRate:       0.10,
		TerminalGrowthRate: 0.025,
		Horizon:            5,
		TerminalMethod:     models.TerminalPerpetuityGrowth,
	}
}

func strongSnapshot(extra map[string]float64) models.Snapshot {
	m := map[string]float64{
		models.MetricOwnerEarnings:     100,
		models.MetricCurrentPrice:      50,
		models.MetricSharesOutstanding: 10,
		models.MetricROIC:              0.22,
		models.MetricROE:               0.25,
		models.MetricMoatScore:         75,
		models.MetricCashConversion:    1.1,
		models.MetricBeneishMScore:     -2.9,
		models.MetricMarginStability:   0.04,
		models.MetricNetDebtToEBITDA:   0.8,
	}
	for k, v := range extra {
		m[k] = v
	}
	return models.NewSnapshot("ACME", "industrials", m, nil)
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	rs, err := rules.NewEvaluator().Compile(rules.DefaultVetoRules())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p, err := New(rs, baseAssumptions(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestAnalyzeProceed(t *testing.T) {
	p := newPipeline(t)
	r, err := p.Analyze(Request{Snapshot: strongSnapshot(nil)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Verdict.Verdict != models.VerdictProceed {
		t.Fatalf("verdict = %+v, args=%+v", r.Verdict, r.CounterArguments)
	}
	if r.Sizing.FinalSize <= 0 || r.Sizing.FinalSize > 0.25 {
		t.Fatalf("sizing = %+v", r.Sizing)
	}
	if r.Monitoring == nil || r.Monitoring.InvalidationPrice == 0 {
		t.Fatalf("monitoring = %+v", r.Monitoring)
	}
	if len(r.StressResults) != 5 || len(r.Sensitivity) == 0 {
		t.Fatalf("missing stress or sensitivity")
	}
	if r.ID == "" || r.Ticker != "ACME" {
		t.Fatalf("identity = %s %s", r.ID, r.Ticker)
	}
}

func TestAnalyzeVetoRejects(t *testing.T) {
	p := newPipeline(t)
	r, err := p.Analyze(Request{Snapshot: strongSnapshot(map[string]float64{models.MetricBeneishMScore: -1.0})})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !r.Veto.Triggered || r.Verdict.Verdict != models.VerdictReject || r.Verdict.Transition != "veto_triggered" {
		t.Fatalf("expected veto reject, got %+v", r.Verdict)
	}
	if r.Sizing.FinalSize != 0 || r.Monitoring != nil {
		t.Fatalf("reject must not size: %+v", r.Sizing)
	}
}

func TestAnalyzeMissingMetricIsWarningNotVeto(t *testing.T) {
	p := newPipeline(t)
	m := strongSnapshot(nil).Metrics()
	delete(m, models.MetricMoatScore)
	r, err := p.Analyze(Request{Snapshot: models.NewSnapshot("ACME", "", m, nil)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Veto.Triggered {
		t.Fatalf("missing moat must not veto")
	}
	if len(r.Veto.Indeterminate) != 1 || r.Veto.Indeterminate[0] != "no_moat" {
		t.Fatalf("indeterminate = %v", r.Veto.Indeterminate)
	}
	if len(r.Warnings) == 0 {
		t.Fatalf("expected data quality warnings")
	}
}

func TestAnalyzeStressFailureReduces(t *testing.T) {
	p := newPipeline(t)
	// price 100 keeps base mos above 30% but the combined case fails
	r, err := p.Analyze(Request{Snapshot: strongSnapshot(map[string]float64{models.MetricCurrentPrice: 100})})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Verdict.Verdict != models.VerdictReduce {
		t.Fatalf("verdict = %+v stress=%+v", r.Verdict, r.StressResults)
	}
}

func TestAnalyzeStageErrors(t *testing.T) {
	p := newPipeline(t)

	_, err := p.Analyze(Request{Snapshot: models.NewSnapshot("NOPE", "", map[string]float64{models.MetricCurrentPrice: 10}, nil)})
	var se *models.StageError
	if !errors.As(err, &se) || se.Stage != models.StageValuation || se.Ticker != "NOPE" {
		t.Fatalf("expected valuation stage error, got %v", err)
	}
	var ie *models.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected wrapped InputError, got %v", err)
	}

	bad := baseAssumptions()
	bad.TerminalGrowthRate = 0.2
	_, err = p.Analyze(Request{Snapshot: strongSnapshot(nil), Assumptions: &bad})
	var ve *models.ValuationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValuationError, got %v", err)
	}

	c := p.Constraints()
	c.MaxPosition = 2
	_, err = p.Analyze(Request{Snapshot: strongSnapshot(nil), Constraints: &c})
	var ce *models.ConfigurationError
	if !errors.As(err, &ce) || !errors.As(err, &se) || se.Stage != models.StageSizing {
		t.Fatalf("expected sizing configuration error, got %v", err)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	p := newPipeline(t)
	snap := strongSnapshot(map[string]float64{models.MetricROIC: 0.1, models.MetricNetDebtToEBITDA: 2})

	first, err := p.Analyze(Request{Snapshot: snap})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	a, _ := json.Marshal(first)
	for i := 0; i < 10; i++ {
		again, err := p.Analyze(Request{Snapshot: snap})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		b, _ := json.Marshal(again)
		if string(a) != string(b) {
			t.Fatalf("run %d differs:\n%s\n%s", i, a, b)
		}
	}
}

func TestReportIDDependsOnInputs(t *testing.T) {
	p := newPipeline(t)
	c := p.Constraints()
	a := ReportID(strongSnapshot(nil), baseAssumptions(), c, p.config)
	b := ReportID(strongSnapshot(nil), baseAssumptions(), c, p.config)
	if a != b {
		t.Fatalf("same inputs gave %s and %s", a, b)
	}
	other := baseAssumptions()
	other.GrowthRate = 0.06
	if ReportID(strongSnapshot(nil), other, c, p.config) == a {
		t.Fatalf("different assumptions gave same id")
	}
	if ReportID(strongSnapshot(map[string]float64{models.MetricROE: 0.3}), baseAssumptions(), c, p.config) == a {
		t.Fatalf("different metrics gave same id")
	}
}

func TestReportIDDependsOnPipelineConfig(t *testing.T) {
	req := Request{Snapshot: strongSnapshot(nil)}
	base := newPipeline(t)
	id := base.ReportID(req)

	r, err := base.Analyze(req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.ID != id {
		t.Fatalf("Analyze id %s, ReportID %s", r.ID, id)
	}
	same := newPipeline(t, WithSynthesizer(decision.NewSynthesizer()))
	if same.ReportID(req) != id {
		t.Fatalf("equal pipelines gave different ids")
	}
	if len(same.Transitions()) != len(decision.Transitions()) {
		t.Fatalf("transitions = %d", len(same.Transitions()))
	}

	strict, err := stress.New(stress.WithFloor(0.9))
	if err != nil {
		t.Fatalf("stress.New: %v", err)
	}
	fewer, err := stress.New(stress.WithScenarios(stress.DefaultScenarios()[:2]))
	if err != nil {
		t.Fatalf("stress.New: %v", err)
	}
	gen, err := adversarial.New(adversarial.WithTriggers(adversarial.DefaultTriggers()[:2]))
	if err != nil {
		t.Fatalf("adversarial.New: %v", err)
	}

	tests := []struct {
		name string
		p    *Pipeline
	}{
		{"stress floor", newPipeline(t, WithStressRunner(strict))},
		{"stress scenarios", newPipeline(t, WithStressRunner(fewer))},
		{"triggers", newPipeline(t, WithGenerator(gen))},
		{"sensitivity off", newPipeline(t, WithSensitivity(false))},
		{"sensitivity steps", newPipeline(t, WithValuator(valuation.New(valuation.WithSensitivitySteps(0.03, 0.01, 2))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.ReportID(req) == id {
				t.Fatalf("config change kept id %s", id)
			}
		})
	}

	rs, err := rules.NewEvaluator().Compile(rules.DefaultVetoRules()[:1])
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p, err := New(rs, baseAssumptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ReportID(req) == id {
		t.Fatalf("rule change kept id %s", id)
	}
}

func TestAnalyzeStrictFloorChangesVerdictAndID(t *testing.T) {
	req := Request{Snapshot: strongSnapshot(nil)}
	strict, err := stress.New(stress.WithFloor(0.9))
	if err != nil {
		t.Fatalf("stress.New: %v", err)
	}
	lax, err := newPipeline(t).Analyze(req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	tight, err := newPipeline(t, WithStressRunner(strict)).Analyze(req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if tight.Verdict.Verdict == lax.Verdict.Verdict {
		t.Fatalf("expected floor to change verdict, both %s", lax.Verdict.Verdict)
	}
	if tight.ID == lax.ID {
		t.Fatalf("different verdicts share id %s", lax.ID)
	}
}

func TestSensitivityGridFailureBecomesWarning(t *testing.T) {
	p := newPipeline(t)
	m := strongSnapshot(nil).Metrics()
	delete(m, models.MetricCurrentPrice)
	cells, ws := p.sensitivityGrid(models.NewSnapshot("ACME", "", m, nil), baseAssumptions())
	if cells != nil || len(ws) != 1 {
		t.Fatalf("cells=%v warnings=%v", cells, ws)
	}
	if ws[0].Source != "sensitivity" || ws[0].Severity != models.SeverityC || ws[0].Message == "" {
		t.Fatalf("warning = %+v", ws[0])
	}

	cells, ws = p.sensitivityGrid(strongSnapshot(nil), baseAssumptions())
	if len(cells) == 0 || ws != nil {
		t.Fatalf("cells=%d warnings=%v", len(cells), ws)
	}
}

func TestObserverSeesEveryStage(t *testing.T) {
	var stages []string
	p := newPipeline(t, WithObserver(func(stage string, _ time.Duration, _ error) {
		stages = append(stages, stage)
	}))
	if _, err := p.Analyze(Request{Snapshot: strongSnapshot(nil)}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []string{models.StageValuation, models.StageVeto, models.StageStress, models.StageAdversarial, models.StageDecision, models.StageSizing}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stages = %v", stages)
		}
	}
}
