package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestSnapshotCopiesInput(t *testing.T) {
	in := map[string]float64{MetricROIC: 0.2}
	s := NewSnapshot("ACME", "tech", in, nil)
	in[MetricROIC] = 0.01
	in[MetricROE] = 0.3

	if v, _ := s.Get(MetricROIC); v != 0.2 {
		t.Fatalf("snapshot observed caller mutation: roic=%v", v)
	}
	if s.Has(MetricROE) {
		t.Fatalf("snapshot observed caller insert")
	}
}

func TestSnapshotNonFiniteIsAbsent(t *testing.T) {
	s := NewSnapshot("ACME", "", map[string]float64{
		MetricROIC:      math.NaN(),
		MetricROE:       math.Inf(1),
		MetricMoatScore: 50,
	}, nil)
	if s.Has(MetricROIC) || s.Has(MetricROE) {
		t.Fatalf("non-finite metrics must be absent")
	}
	if !s.Has(MetricMoatScore) {
		t.Fatalf("finite metric missing")
	}
}

func TestSnapshotWithLeavesReceiver(t *testing.T) {
	s := NewSnapshot("ACME", "", map[string]float64{MetricMoatScore: 50}, []DataWarning{{Severity: SeverityB, Message: "stale"}})
	d := s.With(map[string]float64{MetricMOS: 0.4})

	if s.Has(MetricMOS) {
		t.Fatalf("With mutated receiver")
	}
	if v, ok := d.Get(MetricMOS); !ok || v != 0.4 {
		t.Fatalf("derived metric missing: %v %v", v, ok)
	}
	if len(d.Warnings()) != 1 || d.Ticker() != "ACME" {
		t.Fatalf("With dropped identity or warnings")
	}
}

func TestSnapshotNamesSorted(t *testing.T) {
	s := NewSnapshot("", "", map[string]float64{"roe": 1, "moat_score": 2, "cfo": 3}, nil)
	got := s.Names()
	want := []string{"cfo", "moat_score", "roe"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v", got)
		}
	}
}

func TestSeverityText(t *testing.T) {
	b, err := json.Marshal(struct {
		S Severity `json:"s"`
	}{SeverityB})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"s":"B"}` {
		t.Fatalf("got %s", b)
	}

	var out struct {
		S Severity `json:"s"`
	}
	if err := json.Unmarshal([]byte(`{"s":"a"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.S != SeverityA {
		t.Fatalf("got %v", out.S)
	}
	if err := json.Unmarshal([]byte(`{"s":"D"}`), &out); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
	if !SeverityA.MoreSevereThan(SeverityC) || SeverityC.MoreSevereThan(SeverityB) {
		t.Fatalf("ordering broken")
	}
}

func TestForScenario(t *testing.T) {
	base := ValuationAssumptions{GrowthRate: 0.05, DiscountRate: 0.10, Horizon: 5}
	bear := base.ForScenario(ScenarioBear)
	bull := base.ForScenario(ScenarioBull)
	if math.Abs(bear.GrowthRate-0.025) > 1e-12 || math.Abs(bear.DiscountRate-0.12) > 1e-12 {
		t.Fatalf("bear = %+v", bear)
	}
	if math.Abs(bull.GrowthRate-0.075) > 1e-12 || math.Abs(bull.DiscountRate-0.09) > 1e-12 {
		t.Fatalf("bull = %+v", bull)
	}
	if base.ForScenario(ScenarioBase) != base {
		t.Fatalf("base changed")
	}

	neg := ValuationAssumptions{GrowthRate: -0.10, DiscountRate: 0.10, Horizon: 5}
	if g := neg.ForScenario(ScenarioBear).GrowthRate; math.Abs(g+0.15) > 1e-12 {
		t.Fatalf("negative bear growth = %v, want -0.15", g)
	}
	if g := neg.ForScenario(ScenarioBull).GrowthRate; math.Abs(g+0.05) > 1e-12 {
		t.Fatalf("negative bull growth = %v, want -0.05", g)
	}
}
