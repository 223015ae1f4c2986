// Package adversarial builds the counter-case against an investment.
package adversarial

import (
	"fmt"
	"sort"
	"strings"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/rules"
)

// Finding keys not driven by rule expressions.
const (
	FindingStress            = "stress"
	FindingDataWarning       = "data_warning"
	FindingIncompleteMetrics = "incomplete_metrics"
)

type compiledTier struct {
	Tier
	cond rules.Condition
}

type compiledTrigger struct {
	finding  string
	category string
	tiers    []compiledTier
}

// Generator is immutable after New and safe for concurrent use.
type Generator struct {
	evaluator *rules.Evaluator
	triggers  []compiledTrigger
	defs      []Trigger
}

type Option func(*Generator)

// WithTriggers replaces the default findings.
func WithTriggers(t []Trigger) Option {
	return func(g *Generator) {
		g.defs = t
	}
}

func WithEvaluator(e *rules.Evaluator) Option {
	return func(g *Generator) {
		g.evaluator = e
	}
}

// New compiles the trigger expressions.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{defs: DefaultTriggers()}
	for _, o := range opts {
		o(g)
	}
	if g.evaluator == nil {
		g.evaluator = rules.NewEvaluator()
	}

	seen := make(map[string]struct{}, len(g.defs))
	for _, def := range g.defs {
		if def.Finding == "" {
			return nil, &models.ConfigurationError{Field: "triggers.finding", Reason: "is required"}
		}
		if _, dup := seen[def.Finding]; dup {
			return nil, &models.ConfigurationError{Field: "triggers." + def.Finding, Reason: "duplicate finding"}
		}
		seen[def.Finding] = struct{}{}
		if len(def.Tiers) == 0 {
			return nil, &models.ConfigurationError{Field: "triggers." + def.Finding + ".tiers", Reason: "at least one tier is required"}
		}

		ct := compiledTrigger{finding: def.Finding, category: def.Category}
		for i, tier := range def.Tiers {
			name := fmt.Sprintf("%s[%d]", def.Finding, i)
			cr, err := g.evaluator.CompileRule(models.VetoRule{Name: name, Expression: tier.Expression, Severity: tier.Severity})
			if err != nil {
				return nil, err
			}
			if i > 0 && tier.Severity.MoreSevereThan(def.Tiers[i-1].Severity) {
				return nil, &models.ConfigurationError{Field: "triggers." + name, Reason: "tiers must be ordered from most to least severe"}
			}
			ct.tiers = append(ct.tiers, compiledTier{Tier: tier, cond: cr.Condition})
		}
		g.triggers = append(g.triggers, ct)
	}
	return g, nil
}

// Triggers returns the finding definitions in evaluation order.
func (g *Generator) Triggers() []Trigger {
	return append([]Trigger(nil), g.defs...)
}

// Generate returns the counter-arguments sorted by severity then category,
// along with data-quality warnings for findings that could not be checked.
// Valuation-derived metrics (mos and friends) are added to s internally.
func (g *Generator) Generate(s models.Snapshot, v models.ValuationResult, stress []models.StressResult) ([]models.CounterArgument, []models.DataWarning) {
	view := s.With(v.Derived())
	var (
		args     []models.CounterArgument
		warnings []models.DataWarning
		missing  []string
		skipped  []string
	)

	for _, t := range g.triggers {
		for _, tier := range t.tiers {
			res := tier.cond.Evaluate(view)
			if res.Outcome == rules.OutcomeIndeterminate {
				skipped = append(skipped, t.finding)
				missing = appendUnique(missing, res.Missing...)
				warnings = append(warnings, models.DataWarning{
					Severity: models.SeverityC,
					Category: models.CategoryDataQuality,
					Source:   "adversarial",
					Message:  fmt.Sprintf("finding %s not checked: missing %s", t.finding, strings.Join(res.Missing, ", ")),
				})
				break
			}
			if res.Outcome == rules.OutcomeTrue {
				args = append(args, models.CounterArgument{
					Severity: tier.Severity,
					Category: t.category,
					Finding:  t.finding,
					Claim:    tier.Claim,
					Evidence: res.Values,
					Impact:   tier.Impact,
				})
				break
			}
		}
	}

	if arg, ok := stressArgument(stress); ok {
		args = append(args, arg)
	}
	args = append(args, warningArguments(s.Warnings())...)

	if len(skipped) > 0 {
		ev := make([]models.Evidence, 0, len(missing))
		for _, m := range missing {
			ev = append(ev, models.Evidence{Metric: m, Value: "missing"})
		}
		args = append(args, models.CounterArgument{
			Severity: models.SeverityC,
			Category: models.CategoryDataQuality,
			Finding:  FindingIncompleteMetrics,
			Claim:    "incomplete metrics: " + strings.Join(skipped, ", ") + " not checked",
			Evidence: ev,
			Impact:   "unchecked findings may hide risks",
		})
	}

	sort.SliceStable(args, func(i, j int) bool {
		if args[i].Severity != args[j].Severity {
			return args[i].Severity < args[j].Severity
		}
		return args[i].Category < args[j].Category
	})
	return args, warnings
}

func stressArgument(results []models.StressResult) (models.CounterArgument, bool) {
	var individual, combined []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Combined {
			combined = append(combined, r.Scenario)
		} else {
			individual = append(individual, r.Scenario)
		}
	}

	evidence := func(names []string) []models.Evidence {
		var ev []models.Evidence
		for _, r := range results {
			for _, n := range names {
				if r.Scenario == n {
					ev = append(ev, models.Evidence{Metric: "mos_" + n, Value: rules.FormatValue(r.MarginOfSafety)})
				}
			}
		}
		return ev
	}

	switch {
	case len(individual) > 0:
		return models.CounterArgument{
			Severity: models.SeverityB,
			Category: models.CategoryValuation,
			Finding:  FindingStress,
			Claim:    "margin of safety does not survive " + strings.Join(individual, ", "),
			Evidence: evidence(individual),
			Impact:   "a single plausible adverse change removes the discount to value",
		}, true
	case len(combined) > 0:
		return models.CounterArgument{
			Severity: models.SeverityC,
			Category: models.CategoryValuation,
			Finding:  FindingStress,
			Claim:    "margin of safety does not survive " + strings.Join(combined, ", "),
			Evidence: evidence(combined),
			Impact:   "simultaneous adverse changes would remove the discount to value",
		}, true
	}
	return models.CounterArgument{}, false
}

// warningArguments passes collaborator warnings of severity A and B
// through as data-quality findings, one per distinct message.
func warningArguments(ws []models.DataWarning) []models.CounterArgument {
	var out []models.CounterArgument
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		if w.Severity != models.SeverityA && w.Severity != models.SeverityB {
			continue
		}
		key := w.Severity.String() + "|" + w.Message
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		claim := "data quality issue"
		if w.Category != "" {
			claim += " (" + w.Category + ")"
		}
		out = append(out, models.CounterArgument{
			Severity: w.Severity,
			Category: models.CategoryDataQuality,
			Finding:  FindingDataWarning,
			Claim:    claim + ": " + w.Message,
			Impact:   "data integrity concerns undermine confidence in the analysis",
		})
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
