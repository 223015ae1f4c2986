package models

import (
	"fmt"
	"strings"
)

// Verdict is the terminal recommendation of an analysis.
type Verdict string

const (
	VerdictReject  Verdict = "REJECT"
	VerdictReduce  Verdict = "REDUCE"
	VerdictProceed Verdict = "PROCEED"
)

// ParseVerdict accepts the upper- or lower-case verdict name.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerdictReject, VerdictReduce, VerdictProceed:
		return v, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", s)
	}
}

// DecisionInputs is everything the synthesizer looks at.
type DecisionInputs struct {
	VetoTriggered   bool `json:"veto_triggered"`
	CountA          int  `json:"count_a"`
	CountB          int  `json:"count_b"`
	AnyStressFailed bool `json:"any_stress_failed"`
}

// RecommendationVerdict carries the verdict, the transition that produced it
// and the contributing reasons in evaluation order.
type RecommendationVerdict struct {
	Verdict    Verdict        `json:"verdict"`
	Transition string         `json:"transition"`
	Inputs     DecisionInputs `json:"inputs"`
	Reasons    []string       `json:"reasons,omitempty"`
}

// PositionConstraints bound the allocation for one holding. All sizes are
// fractions of total portfolio capital.
type PositionConstraints struct {
	MaxPosition       float64 `json:"max_position" yaml:"max_position" default:"0.25" validate:"gt=0,lte=1"`
	MaxSector         float64 `json:"max_sector" yaml:"max_sector" default:"0.40" validate:"gt=0,lte=1"`
	SectorAllocated   float64 `json:"sector_allocated" yaml:"sector_allocated" validate:"gte=0,lte=1"`
	MinCashReserve    float64 `json:"min_cash_reserve" yaml:"min_cash_reserve" default:"0.10" validate:"gte=0,lt=1"`
	ConvictionScale   float64 `json:"conviction_scale" yaml:"conviction_scale" default:"0.30" validate:"gt=0,lte=1"`
	FullConvictionMOS float64 `json:"full_conviction_mos" yaml:"full_conviction_mos" default:"0.50" validate:"gt=0,lte=1"`
	MOSWeight         float64 `json:"mos_weight" yaml:"mos_weight" default:"0.6" validate:"gte=0,lte=1"`
	MoatWeight        float64 `json:"moat_weight" yaml:"moat_weight" default:"0.4" validate:"gte=0,lte=1"`
	PenaltyA          float64 `json:"penalty_a" yaml:"penalty_a" default:"0.25" validate:"gte=0,lte=1"`
	PenaltyB          float64 `json:"penalty_b" yaml:"penalty_b" default:"0.10" validate:"gte=0,lte=1"`
	PenaltyC          float64 `json:"penalty_c" yaml:"penalty_c" default:"0.05" validate:"gte=0,lte=1"`
	MinMultiplier     float64 `json:"min_multiplier" yaml:"min_multiplier" default:"0.25" validate:"gte=0,lte=1"`
	ReduceFraction    float64 `json:"reduce_fraction" yaml:"reduce_fraction" default:"0.5" validate:"gt=0,lte=1"`
}

// Binding constraint names.
const (
	ConstraintVerdict     = "verdict"
	ConstraintMaxPosition = "max_position"
	ConstraintSectorCap   = "sector_cap"
	ConstraintCashReserve = "cash_reserve"
)

// PositionSizingResult records each stage of the sizing calculation.
type PositionSizingResult struct {
	Verdict           Verdict `json:"verdict"`
	ConvictionScore   float64 `json:"conviction_score"`
	RawSize           float64 `json:"raw_size"`
	PenaltyMultiplier float64 `json:"penalty_multiplier"`
	PenalizedSize     float64 `json:"penalized_size"`
	FinalSize         float64 `json:"final_size"`
	BindingConstraint string  `json:"binding_constraint,omitempty"`
}

// MonitoringTriggers are price and metric checkpoints for a held position.
type MonitoringTriggers struct {
	BuyMorePrice      float64  `json:"buy_more_price,omitempty"`
	InvalidationPrice float64  `json:"invalidation_price,omitempty"`
	WatchMetrics      []string `json:"watch_metrics,omitempty"`
	QuarterlyReview   bool     `json:"quarterly_review"`
}

// AnalysisReport is the complete, immutable output of one analysis.
type AnalysisReport struct {
	ID               string                `json:"id"`
	Ticker           string                `json:"ticker"`
	Sector           string                `json:"sector,omitempty"`
	Valuation        ValuationResult       `json:"valuation"`
	Sensitivity      []SensitivityCell     `json:"sensitivity,omitempty"`
	Veto             VetoOutcome           `json:"veto"`
	CounterArguments []CounterArgument     `json:"counter_arguments"`
	StressResults    []StressResult        `json:"stress_results"`
	Verdict          RecommendationVerdict `json:"verdict"`
	Sizing           PositionSizingResult  `json:"sizing"`
	Monitoring       *MonitoringTriggers   `json:"monitoring,omitempty"`
	Warnings         []DataWarning         `json:"warnings,omitempty"`
}
