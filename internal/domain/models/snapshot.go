package models

import (
	"math"
	"sort"
)

// Metric names understood by the valuation and review stages.
const (
	MetricOwnerEarnings     = "owner_earnings"
	MetricCurrentPrice      = "current_price"
	MetricSharesOutstanding = "shares_outstanding"
	MetricROIC              = "roic"
	MetricROE               = "roe"
	MetricMoatScore         = "moat_score"
	MetricBeneishMScore     = "beneish_m_score"
	MetricCashConversion    = "cfo_ni_ratio"
	MetricNetDebtToEBITDA   = "net_debt_to_ebitda"
	MetricMarginStability   = "margin_stability"
	MetricCFO               = "cfo"
	MetricMaintenanceCapex  = "maintenance_capex"

	// Derived from the valuation stage.
	MetricMOS                = "mos"
	MetricMOSBear            = "mos_bear"
	MetricMOSBull            = "mos_bull"
	MetricIntrinsicValue     = "intrinsic_value"
	MetricIntrinsicValueBear = "intrinsic_value_bear"
	MetricIntrinsicValueBull = "intrinsic_value_bull"
)

// KnownMetrics lists every metric name a rule expression may reference.
func KnownMetrics() []string {
	return []string{
		MetricOwnerEarnings, MetricCurrentPrice, MetricSharesOutstanding,
		MetricROIC, MetricROE, MetricMoatScore, MetricBeneishMScore,
		MetricCashConversion, MetricNetDebtToEBITDA, MetricMarginStability,
		MetricCFO, MetricMaintenanceCapex,
		MetricMOS, MetricMOSBear, MetricMOSBull,
		MetricIntrinsicValue, MetricIntrinsicValueBear, MetricIntrinsicValueBull,
	}
}

// DataWarning is a data-quality issue attached by the ingestion collaborator
// or raised while reviewing (indeterminate rules, failed scenarios).
type DataWarning struct {
	Severity Severity `json:"severity" validate:"required"`
	Category string   `json:"category"`
	Source   string   `json:"source,omitempty"`
	Message  string   `json:"message" validate:"required"`
}

// Snapshot is a read-only view over a company's validated metrics.
// The zero value is an empty snapshot.
type Snapshot struct {
	ticker   string
	sector   string
	metrics  map[string]float64
	warnings []DataWarning
}

// NewSnapshot copies metrics and warnings; later changes to the arguments
// are not visible through the snapshot.
func NewSnapshot(ticker, sector string, metrics map[string]float64, warnings []DataWarning) Snapshot {
	m := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		m[k] = v
	}
	var w []DataWarning
	if len(warnings) > 0 {
		w = make([]DataWarning, len(warnings))
		copy(w, warnings)
	}
	return Snapshot{ticker: ticker, sector: sector, metrics: m, warnings: w}
}

func (s Snapshot) Ticker() string { return s.ticker }

func (s Snapshot) Sector() string { return s.sector }

// Get returns the named metric. NaN and infinities are reported as absent.
func (s Snapshot) Get(name string) (float64, bool) {
	v, ok := s.metrics[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Has reports whether the metric is present and finite.
func (s Snapshot) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the metric names in sorted order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.metrics))
	for k := range s.metrics {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Metrics returns a copy of the underlying metrics.
func (s Snapshot) Metrics() map[string]float64 {
	m := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		m[k] = v
	}
	return m
}

// Warnings returns a copy of the collaborator-supplied warnings.
func (s Snapshot) Warnings() []DataWarning {
	if len(s.warnings) == 0 {
		return nil
	}
	out := make([]DataWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// With returns a new snapshot carrying the extra metrics. Existing names are
// overwritten in the copy; s itself is unchanged.
func (s Snapshot) With(derived map[string]float64) Snapshot {
	m := s.Metrics()
	for k, v := range derived {
		m[k] = v
	}
	return Snapshot{ticker: s.ticker, sector: s.sector, metrics: m, warnings: s.Warnings()}
}
