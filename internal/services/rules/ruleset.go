package rules

import (
	"errors"
	"fmt"
	"strings"

	"Moatline/internal/domain/models"
)

// CompiledRule pairs a declarative rule with its parsed condition.
type CompiledRule struct {
	Rule      models.VetoRule
	Condition Condition
}

// CompileRule parses r.Expression and checks the rule's metadata.
func (e *Evaluator) CompileRule(r models.VetoRule) (CompiledRule, error) {
	if strings.TrimSpace(r.Name) == "" {
		return CompiledRule{}, &models.ConfigurationError{Field: "rules.name", Reason: "is required"}
	}
	if !r.Severity.Valid() {
		return CompiledRule{}, &models.ConfigurationError{Field: "rules." + r.Name + ".severity", Reason: "must be A, B or C"}
	}
	cond, err := e.Parse(r.Expression)
	if err != nil {
		var pe *models.RuleParseError
		if errors.As(err, &pe) {
			pe.Rule = r.Name
		}
		return CompiledRule{}, err
	}
	return CompiledRule{Rule: r, Condition: cond}, nil
}

// RuleSet is an ordered, immutable set of compiled rules.
type RuleSet struct {
	rules []CompiledRule
}

// Compile builds a rule set. Rule names must be unique.
func (e *Evaluator) Compile(rules []models.VetoRule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]CompiledRule, 0, len(rules))}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Name]; dup {
			return nil, &models.ConfigurationError{Field: "rules." + r.Name, Reason: "duplicate rule name"}
		}
		seen[r.Name] = struct{}{}
		cr, err := e.CompileRule(r)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs, nil
}

// Rules returns the declarative rules in order.
func (rs *RuleSet) Rules() []models.VetoRule {
	out := make([]models.VetoRule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Rule
	}
	return out
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

// CheckVeto evaluates every rule. Triggered A-level rules veto; triggered B
// and C rules are advisories; indeterminate rules only produce warnings.
func (rs *RuleSet) CheckVeto(s models.Snapshot) models.VetoOutcome {
	var out models.VetoOutcome
	for _, r := range rs.rules {
		res := r.Condition.Evaluate(s)
		switch res.Outcome {
		case OutcomeTrue:
			tr := models.TriggeredRule{Name: r.Rule.Name, Severity: r.Rule.Severity, Message: r.Rule.Message}
			if r.Rule.Severity == models.SeverityA {
				out.Vetoes = append(out.Vetoes, tr)
				out.Triggered = true
			} else {
				out.Advisories = append(out.Advisories, tr)
			}
		case OutcomeIndeterminate:
			out.Indeterminate = append(out.Indeterminate, r.Rule.Name)
			out.Warnings = append(out.Warnings, models.DataWarning{
				Severity: models.SeverityC,
				Category: models.CategoryDataQuality,
				Source:   "rules",
				Message:  fmt.Sprintf("rule %s not evaluated: missing %s", r.Rule.Name, strings.Join(res.Missing, ", ")),
			})
		}
	}
	return out
}

// DefaultVetoRules are the hard filters applied when none are configured.
func DefaultVetoRules() []models.VetoRule {
	return []models.VetoRule{
		{
			Name:       "earnings_manipulation",
			Expression: "beneish_m_score > -2.2",
			Severity:   models.SeverityA,
			Message:    "Beneish M-score indicates likely earnings manipulation",
		},
		{
			Name:       "poor_cash_conversion",
			Expression: "cfo_ni_ratio < 0.5",
			Severity:   models.SeverityA,
			Message:    "operating cash flow covers less than half of net income",
		},
		{
			Name:       "no_moat",
			Expression: "moat_score < 40",
			Severity:   models.SeverityA,
			Message:    "no durable competitive advantage",
		},
		{
			Name:       "insufficient_margin_of_safety",
			Expression: "mos < 0.10",
			Severity:   models.SeverityA,
			Message:    "margin of safety below 10%",
		},
		{
			Name:       "negative_owner_earnings",
			Expression: "owner_earnings < 0",
			Severity:   models.SeverityA,
			Message:    "owner earnings are negative",
		},
	}
}
