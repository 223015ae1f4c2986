package repository

import (
	"context"
	"errors"
	"time"

	"Moatline/internal/domain/models"
)

// ErrNotFound is returned when no report exists for the lookup.
var ErrNotFound = errors.New("report not found")

// ReportSummary is one row of a ticker's analysis history.
type ReportSummary struct {
	ID         string         `json:"id"`
	Ticker     string         `json:"ticker"`
	Verdict    models.Verdict `json:"verdict"`
	MOS        float64        `json:"margin_of_safety"`
	FinalSize  float64        `json:"final_size"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

type ReportStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Save(ctx context.Context, r *models.AnalysisReport) error
	Latest(ctx context.Context, ticker string) (*models.AnalysisReport, error)
	History(ctx context.Context, ticker string, limit int) ([]ReportSummary, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type VerdictPublisher interface {
	Publish(ctx context.Context, r *models.AnalysisReport) error
	PublishBatch(ctx context.Context, reports []*models.AnalysisReport) error
	Close() error
}

// ReportCache memoises reports by their deterministic ID.
type ReportCache interface {
	Get(ctx context.Context, id string) (*models.AnalysisReport, bool, error)
	Set(ctx context.Context, r *models.AnalysisReport) error
}

type Metrics interface {
	RecordAnalysis(verdict string)
	RecordStage(stage string, seconds float64, err error)
	RecordWarnings(n int)
	RecordCache(hit bool)
	RecordPublished(verdict string)
	RecordError(kind string)
}
