package decision

import (
	"testing"

	"Moatline/internal/domain/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		in         models.DecisionInputs
		verdict    models.Verdict
		transition string
	}{
		{"veto wins over everything", models.DecisionInputs{VetoTriggered: true}, models.VerdictReject, TransitionVeto},
		{"veto with clean findings", models.DecisionInputs{VetoTriggered: true, CountA: 0, CountB: 0}, models.VerdictReject, TransitionVeto},
		{"two A", models.DecisionInputs{CountA: 2}, models.VerdictReject, TransitionFatalFindings},
		{"one A", models.DecisionInputs{CountA: 1}, models.VerdictProceed, TransitionDefault},
		{"three B", models.DecisionInputs{CountB: 3}, models.VerdictReduce, TransitionConcerns},
		{"two B", models.DecisionInputs{CountB: 2}, models.VerdictProceed, TransitionDefault},
		{"stress failed", models.DecisionInputs{AnyStressFailed: true}, models.VerdictReduce, TransitionConcerns},
		{"two A and stress", models.DecisionInputs{CountA: 2, AnyStressFailed: true}, models.VerdictReject, TransitionFatalFindings},
		{"clean", models.DecisionInputs{}, models.VerdictProceed, TransitionDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.in)
			if got.Verdict != tt.verdict || got.Transition != tt.transition {
				t.Fatalf("Decide(%+v) = %s via %s, want %s via %s", tt.in, got.Verdict, got.Transition, tt.verdict, tt.transition)
			}
			if len(got.Reasons) == 0 {
				t.Fatalf("expected at least one reason")
			}
		})
	}
}

func TestDecideReasonsOrdered(t *testing.T) {
	got := Decide(models.DecisionInputs{VetoTriggered: true, CountA: 3, CountB: 4})
	want := []string{"veto rule triggered", "3 A-level counter-arguments", "4 B-level counter-arguments"}
	if len(got.Reasons) != len(want) {
		t.Fatalf("reasons = %v", got.Reasons)
	}
	for i := range want {
		if got.Reasons[i] != want[i] {
			t.Fatalf("reason %d = %q, want %q", i, got.Reasons[i], want[i])
		}
	}
}

func TestTransitionsTable(t *testing.T) {
	tr := Transitions()
	names := []string{TransitionVeto, TransitionFatalFindings, TransitionConcerns, TransitionDefault}
	if len(tr) != len(names) {
		t.Fatalf("table has %d rows", len(tr))
	}
	for i, n := range names {
		if tr[i].Name != n {
			t.Fatalf("row %d = %s, want %s", i, tr[i].Name, n)
		}
	}
	tr[0].Name = "mutated"
	if Transitions()[0].Name != TransitionVeto {
		t.Fatalf("Transitions exposes internal table")
	}
}

func TestInputs(t *testing.T) {
	args := []models.CounterArgument{
		{Severity: models.SeverityA}, {Severity: models.SeverityB}, {Severity: models.SeverityB}, {Severity: models.SeverityC},
	}
	in := Inputs(models.VetoOutcome{Triggered: true}, args, true)
	if !in.VetoTriggered || in.CountA != 1 || in.CountB != 2 || !in.AnyStressFailed {
		t.Fatalf("Inputs = %+v", in)
	}
}
