// Package decision maps review outcomes to a verdict through a fixed,
// ordered transition table.
package decision

import (
	"fmt"

	"Moatline/internal/domain/models"
)

// Transition is one row of the table. Rows are checked in order and the
// first match decides.
type Transition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Verdict     models.Verdict `json:"verdict"`
	match       func(models.DecisionInputs) bool
	reason      func(models.DecisionInputs) string
}

// Transition names.
const (
	TransitionVeto          = "veto_triggered"
	TransitionFatalFindings = "multiple_a_findings"
	TransitionConcerns      = "concerns_or_stress_failure"
	TransitionDefault       = "default_proceed"
)

var table = []Transition{
	{
		Name:        TransitionVeto,
		Description: "an A-level veto rule triggered",
		Verdict:     models.VerdictReject,
		match:       func(in models.DecisionInputs) bool { return in.VetoTriggered },
		reason:      func(models.DecisionInputs) string { return "veto rule triggered" },
	},
	{
		Name:        TransitionFatalFindings,
		Description: "two or more A-level counter-arguments",
		Verdict:     models.VerdictReject,
		match:       func(in models.DecisionInputs) bool { return in.CountA >= 2 },
		reason: func(in models.DecisionInputs) string {
			return fmt.Sprintf("%d A-level counter-arguments", in.CountA)
		},
	},
	{
		Name:        TransitionConcerns,
		Description: "three or more B-level counter-arguments, or any stress scenario failed",
		Verdict:     models.VerdictReduce,
		match:       func(in models.DecisionInputs) bool { return in.CountB >= 3 || in.AnyStressFailed },
		reason: func(in models.DecisionInputs) string {
			switch {
			case in.CountB >= 3 && in.AnyStressFailed:
				return fmt.Sprintf("%d B-level counter-arguments and a failed stress scenario", in.CountB)
			case in.AnyStressFailed:
				return "a stress scenario failed"
			default:
				return fmt.Sprintf("%d B-level counter-arguments", in.CountB)
			}
		},
	},
	{
		Name:        TransitionDefault,
		Description: "no blocking findings",
		Verdict:     models.VerdictProceed,
		match:       func(models.DecisionInputs) bool { return true },
		reason:      func(models.DecisionInputs) string { return "no blocking findings" },
	},
}

// Transitions returns the table in evaluation order.
func Transitions() []Transition {
	return append([]Transition(nil), table...)
}

// Decide is a pure function of its inputs.
func Decide(in models.DecisionInputs) models.RecommendationVerdict {
	for _, t := range table {
		if !t.match(in) {
			continue
		}
		return models.RecommendationVerdict{
			Verdict:    t.Verdict,
			Transition: t.Name,
			Inputs:     in,
			Reasons:    reasons(in, t),
		}
	}
	// unreachable: the last row always matches
	return models.RecommendationVerdict{Verdict: models.VerdictProceed, Transition: TransitionDefault, Inputs: in}
}

// reasons lists the firing row first, then any later rows that also match
// and would have changed the verdict.
func reasons(in models.DecisionInputs, fired Transition) []string {
	out := []string{fired.reason(in)}
	after := false
	for _, t := range table {
		if t.Name == fired.Name {
			after = true
			continue
		}
		if after && t.Name != TransitionDefault && t.match(in) {
			out = append(out, t.reason(in))
		}
	}
	return out
}

// Inputs assembles DecisionInputs from the review stages.
func Inputs(veto models.VetoOutcome, args []models.CounterArgument, stressFailed bool) models.DecisionInputs {
	counts := models.CountSeverities(args)
	return models.DecisionInputs{
		VetoTriggered:   veto.Triggered,
		CountA:          counts.A,
		CountB:          counts.B,
		AnyStressFailed: stressFailed,
	}
}

// Synthesizer is the injectable form of Decide.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

func (*Synthesizer) Decide(in models.DecisionInputs) models.RecommendationVerdict { return Decide(in) }

func (*Synthesizer) Transitions() []Transition { return Transitions() }
