package rules

import (
	"errors"
	"strings"
	"testing"

	"Moatline/internal/domain/models"
)

func snap(metrics map[string]float64) models.Snapshot {
	return models.NewSnapshot("ACME", "", metrics, nil)
}

func TestParseAccepts(t *testing.T) {
	tests := []struct {
		expr      string
		clauses   int
		comb      Combinator
		canonical string
	}{
		{"moat_score < 40", 1, CombinatorNone, "moat_score < 40"},
		{"beneish_m_score > -2.22", 1, CombinatorNone, "beneish_m_score > -2.22"},
		{"roic>=0.12 and roe>=.15", 2, CombinatorAnd, "roic >= 0.12 AND roe >= 0.15"},
		{"roic < 0.08 OR roe < 0.10 OR mos < 0.1", 3, CombinatorOr, "roic < 0.08 OR roe < 0.1 OR mos < 0.1"},
		{"net_debt_to_ebitda != 0", 1, CombinatorNone, "net_debt_to_ebitda != 0"},
		{"cfo == 1e3", 1, CombinatorNone, "cfo == 1000"},
	}
	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := e.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(c.Clauses) != tt.clauses || c.Combinator != tt.comb {
				t.Fatalf("got %d clauses comb=%v", len(c.Clauses), c.Combinator)
			}
			if c.String() != tt.canonical {
				t.Fatalf("String() = %q, want %q", c.String(), tt.canonical)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		offset int
		reason string
	}{
		{"empty", "", 0, "expected metric"},
		{"unknown metric", "pe_ratio < 10", 0, "unknown metric"},
		{"bad operator", "roic = 0.1", 5, "unsupported operator"},
		{"function call", "abs(roic) < 1", 3, "unexpected character"},
		{"parentheses", "(roic < 1)", 0, "unexpected character"},
		{"string literal", "roic < '1'", 7, "unexpected character"},
		{"semicolon", "roic < 1; drop", 8, "unexpected character"},
		{"missing number", "roic <", 6, "expected number"},
		{"missing operator", "roic 0.1", 5, "expected comparison operator"},
		{"mixed combinators", "roic < 1 AND roe < 1 OR mos < 1", 21, "cannot mix"},
		{"trailing combinator", "roic < 1 AND", 12, "expected metric"},
		{"two numbers", "roic < 1 2", 9, "expected AND"},
		{"malformed number", "roic < 1.2.3", 7, "malformed number"},
		{"number then ident", "roic < 12abc", 7, "malformed number"},
	}
	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Parse(tt.expr)
			var pe *models.RuleParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected RuleParseError, got %v", err)
			}
			if pe.Offset != tt.offset {
				t.Fatalf("offset = %d, want %d (%s)", pe.Offset, tt.offset, pe.Reason)
			}
			if !strings.Contains(pe.Reason, tt.reason) {
				t.Fatalf("reason = %q, want contains %q", pe.Reason, tt.reason)
			}
			if pe.Expression != tt.expr {
				t.Fatalf("expression not recorded")
			}
		})
	}
}

func TestParseLimits(t *testing.T) {
	e := NewEvaluator(WithLimits(32, 2))
	if _, err := e.Parse(strings.Repeat("roic < 1 AND ", 3) + "roic < 1"); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := e.Parse("roic < 1 OR roe < 1 OR mos < 1"); err == nil {
		t.Fatalf("expected clause error")
	}
	if _, err := e.Parse("roic < 1 OR roe < 1"); err != nil {
		t.Fatalf("two clauses within limits: %v", err)
	}
}

func TestEvaluateMoatExample(t *testing.T) {
	e := NewEvaluator()
	cr, err := e.CompileRule(models.VetoRule{Name: "no_moat", Expression: "moat_score < 40", Severity: models.SeverityA})
	if err != nil {
		t.Fatalf("CompileRule: %v", err)
	}

	tests := []struct {
		name    string
		metrics map[string]float64
		want    Outcome
	}{
		{"below", map[string]float64{models.MetricMoatScore: 35}, OutcomeTrue},
		{"above", map[string]float64{models.MetricMoatScore: 45}, OutcomeFalse},
		{"absent", map[string]float64{}, OutcomeIndeterminate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(cr, snap(tt.metrics))
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %v, want %v", res.Outcome, tt.want)
			}
		})
	}
}

func TestEvaluateCombinators(t *testing.T) {
	e := NewEvaluator()
	s := snap(map[string]float64{models.MetricROIC: 0.05, models.MetricROE: 0.20})

	tests := []struct {
		expr string
		want Outcome
	}{
		{"roic < 0.08 AND roe < 0.10", OutcomeFalse},
		{"roic < 0.08 OR roe < 0.10", OutcomeTrue},
		{"roic <= 0.05 AND roe >= 0.2", OutcomeTrue},
		{"roic < 0.08 OR moat_score < 40", OutcomeIndeterminate},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := e.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := c.Evaluate(s).Outcome; got != tt.want {
				t.Fatalf("outcome = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateRecordsValues(t *testing.T) {
	c, err := NewEvaluator().Parse("roe < 0.15 AND roic < 0.12 AND roe > 0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := c.Evaluate(snap(map[string]float64{models.MetricROIC: 0.1, models.MetricROE: 0.123456}))
	if len(res.Values) != 2 {
		t.Fatalf("values = %+v", res.Values)
	}
	if res.Values[0] != (models.Evidence{Metric: "roe", Value: "0.1235"}) || res.Values[1] != (models.Evidence{Metric: "roic", Value: "0.1"}) {
		t.Fatalf("values = %+v", res.Values)
	}
}

func TestCompileRejectsBadRuleSets(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Compile([]models.VetoRule{{Name: "x", Expression: "roic < 1", Severity: models.SeverityA}, {Name: "x", Expression: "roe < 1", Severity: models.SeverityA}})
	var ce *models.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError for duplicate, got %v", err)
	}

	_, err = e.Compile([]models.VetoRule{{Name: "bad", Expression: "roic ~ 1", Severity: models.SeverityA}})
	var pe *models.RuleParseError
	if !errors.As(err, &pe) || pe.Rule != "bad" {
		t.Fatalf("expected RuleParseError naming rule, got %v", err)
	}

	_, err = e.Compile([]models.VetoRule{{Name: "sev", Expression: "roic < 1"}})
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError for missing severity, got %v", err)
	}
}

func TestCheckVeto(t *testing.T) {
	e := NewEvaluator()
	rs, err := e.Compile([]models.VetoRule{
		{Name: "no_moat", Expression: "moat_score < 40", Severity: models.SeverityA, Message: "no moat"},
		{Name: "levered", Expression: "net_debt_to_ebitda > 3", Severity: models.SeverityB},
		{Name: "manipulation", Expression: "beneish_m_score > -2.2", Severity: models.SeverityA},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	out := rs.CheckVeto(snap(map[string]float64{models.MetricMoatScore: 35, models.MetricNetDebtToEBITDA: 4}))
	if !out.Triggered || len(out.Vetoes) != 1 || out.Vetoes[0].Name != "no_moat" {
		t.Fatalf("vetoes = %+v", out.Vetoes)
	}
	if len(out.Advisories) != 1 || out.Advisories[0].Name != "levered" {
		t.Fatalf("advisories = %+v", out.Advisories)
	}
	if len(out.Indeterminate) != 1 || out.Indeterminate[0] != "manipulation" || len(out.Warnings) != 1 {
		t.Fatalf("indeterminate = %+v warnings=%+v", out.Indeterminate, out.Warnings)
	}

	out = rs.CheckVeto(snap(map[string]float64{models.MetricMoatScore: 45, models.MetricNetDebtToEBITDA: 1}))
	if out.Triggered || len(out.Advisories) != 0 {
		t.Fatalf("unexpected trigger %+v", out)
	}
}

func TestCheckVetoMissingMetricNeverVetoes(t *testing.T) {
	rs, err := NewEvaluator().Compile([]models.VetoRule{{Name: "no_moat", Expression: "moat_score < 40", Severity: models.SeverityA}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := rs.CheckVeto(snap(nil))
	if out.Triggered {
		t.Fatalf("missing metric must not veto")
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Category != models.CategoryDataQuality {
		t.Fatalf("warnings = %+v", out.Warnings)
	}
}

func TestDefaultVetoRulesCompile(t *testing.T) {
	rs, err := NewEvaluator().Compile(DefaultVetoRules())
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	if rs.Len() != 5 {
		t.Fatalf("expected 5 rules, got %d", rs.Len())
	}
}
