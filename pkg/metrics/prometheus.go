package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses     *prometheus.CounterVec
	stageErrors  *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	warnings     prometheus.Histogram
	cache        *prometheus.CounterVec
	published    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New registers the analysis metrics on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moatline_analyses_total",
				Help: "Completed analyses by verdict",
			},
			[]string{"verdict"},
		),
		stageErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moatline_stage_errors_total",
				Help: "Fatal pipeline errors by stage",
			},
			[]string{"stage"},
		),
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moatline_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"stage"},
		),
		warnings: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "moatline_report_warnings",
				Help:    "Data-quality warnings attached per report",
				Buckets: []float64{0, 1, 2, 5, 10, 20},
			},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moatline_report_cache_total",
				Help: "Report cache lookups by result",
			},
			[]string{"hit"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moatline_verdicts_published_total",
				Help: "Verdict events published to Kafka",
			},
			[]string{"verdict"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moatline_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordAnalysis(verdict string) {
	r.analyses.WithLabelValues(verdict).Inc()
}

// RecordStage observes stage latency and counts failures.
func (r *Recorder) RecordStage(stage string, seconds float64, err error) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
	if err != nil {
		r.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) RecordWarnings(n int) {
	r.warnings.Observe(float64(n))
}

func (r *Recorder) RecordCache(hit bool) {
	r.cache.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

func (r *Recorder) RecordPublished(verdict string) {
	r.published.WithLabelValues(verdict).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
