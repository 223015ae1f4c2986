package models

// SnapshotPayload is the wire form of a snapshot, as sent by the
// data-quality service, HTTP clients and Kafka producers. Owner earnings may
// be omitted when cfo (and optionally total_capex) are supplied.
type SnapshotPayload struct {
	Ticker           string             `json:"ticker" validate:"required,max=16"`
	Sector           string             `json:"sector,omitempty" validate:"max=64"`
	Metrics          map[string]float64 `json:"metrics" validate:"required"`
	TotalCapex       *float64           `json:"total_capex,omitempty" validate:"omitempty,gte=0"`
	GrowthCapexRatio *float64           `json:"growth_capex_ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	Warnings         []DataWarning      `json:"warnings,omitempty" validate:"dive"`
}

// AnalysisRequest asks for one analysis. Nil overrides use configured defaults.
type AnalysisRequest struct {
	Snapshot    SnapshotPayload       `json:"snapshot"`
	Assumptions *ValuationAssumptions `json:"assumptions,omitempty"`
	Constraints *PositionConstraints  `json:"constraints,omitempty"`
}

type BatchAnalysisRequest struct {
	Requests []AnalysisRequest `json:"requests" validate:"required,min=1,max=100,dive"`
}

// TickerAnalysisRequest analyses a ticker whose snapshot is fetched upstream.
type TickerAnalysisRequest struct {
	Ticker string `param:"ticker" json:"-" validate:"required,max=16"`
}

type ReportQuery struct {
	Ticker  string `param:"ticker" json:"-" validate:"required,max=16"`
	History bool   `query:"history" json:"-"`
	Limit   int    `query:"limit" json:"-" default:"20" validate:"gte=1,lte=500"`
}

type RuleValidationRequest struct {
	Expression string `json:"expression" validate:"required,max=256"`
}

// RuleValidationResponse reports a compiled expression or its parse error.
type RuleValidationResponse struct {
	Valid     bool     `json:"valid"`
	Canonical string   `json:"canonical,omitempty"`
	Metrics   []string `json:"metrics,omitempty"`
	Error     string   `json:"error,omitempty"`
	Offset    *int     `json:"offset,omitempty"`
}

// BatchItem is one entry of a batch response; exactly one of Report and
// Error is set.
type BatchItem struct {
	Ticker string          `json:"ticker"`
	Report *AnalysisReport `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// VerdictMessage is the compact event published for each analysis.
type VerdictMessage struct {
	ReportID          string   `json:"report_id"`
	Ticker            string   `json:"ticker"`
	Verdict           Verdict  `json:"verdict"`
	Transition        string   `json:"transition"`
	MarginOfSafety    float64  `json:"margin_of_safety"`
	FinalSize         float64  `json:"final_size"`
	BindingConstraint string   `json:"binding_constraint,omitempty"`
	Reasons           []string `json:"reasons,omitempty"`
	Timestamp         int64    `json:"ts"`
}
