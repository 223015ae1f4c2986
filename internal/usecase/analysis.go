package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	"Moatline/internal/domain/service"
	"Moatline/internal/services/pipeline"
	"Moatline/internal/services/snapshotsource"
	applogger "Moatline/pkg/logger"
)

// ErrNoSnapshotSource is returned by AnalyzeTicker when no upstream
// data-quality service is configured.
var ErrNoSnapshotSource = errors.New("snapshot source not configured")

// AnalysisUseCase runs the pipeline and takes care of everything around it:
// report cache, persistence, verdict events and metrics.
type AnalysisUseCase struct {
	pipeline  *pipeline.Pipeline
	store     domrepo.ReportStore
	publisher domrepo.VerdictPublisher
	cache     domrepo.ReportCache
	metrics   domrepo.Metrics
	source    service.SnapshotSource
	l         *applogger.Logger
	workers   int
	timeout   time.Duration
}

type AnalysisOption func(*AnalysisUseCase)

func WithReportCache(c domrepo.ReportCache) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.cache = c }
}

func WithSnapshotSource(s service.SnapshotSource) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.source = s }
}

func WithLogger(l *applogger.Logger) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if l != nil {
			uc.l = l
		}
	}
}

// WithBatchWorkers bounds concurrent analyses in AnalyzeBatch.
func WithBatchWorkers(n int) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if n > 0 {
			uc.workers = n
		}
	}
}

// WithTimeout bounds side effects (store, cache, publish) per analysis.
func WithTimeout(d time.Duration) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func NewAnalysisUseCase(p *pipeline.Pipeline, store domrepo.ReportStore, pub domrepo.VerdictPublisher, m domrepo.Metrics, opts ...AnalysisOption) *AnalysisUseCase {
	uc := &AnalysisUseCase{
		pipeline:  p,
		store:     store,
		publisher: pub,
		metrics:   m,
		l:         applogger.Nop(),
		workers:   4,
		timeout:   5 * time.Second,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// Analyze converts the payload, runs the pipeline and publishes the verdict.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error) {
	snap, err := snapshotsource.FromPayload(req.Snapshot)
	if err != nil {
		uc.metrics.RecordError("input")
		return nil, err
	}
	r, cached, err := uc.run(ctx, pipeline.Request{Snapshot: snap, Assumptions: req.Assumptions, Constraints: req.Constraints})
	if err != nil {
		return nil, err
	}
	if !cached {
		uc.publish(ctx, r)
	}
	return r, nil
}

// AnalyzeTicker fetches the snapshot upstream and analyses it with the
// configured defaults.
func (uc *AnalysisUseCase) AnalyzeTicker(ctx context.Context, ticker string) (*models.AnalysisReport, error) {
	if uc.source == nil {
		return nil, ErrNoSnapshotSource
	}
	snap, err := uc.source.Fetch(ctx, ticker)
	if err != nil {
		uc.metrics.RecordError("snapshot_fetch")
		return nil, err
	}
	r, cached, err := uc.run(ctx, pipeline.Request{Snapshot: snap})
	if err != nil {
		return nil, err
	}
	if !cached {
		uc.publish(ctx, r)
	}
	return r, nil
}

// AnalyzeBatch analyses every request with bounded concurrency. Items keep
// the request order; one failure never fails the batch. New verdicts are
// published in a single write.
func (uc *AnalysisUseCase) AnalyzeBatch(ctx context.Context, reqs []models.AnalysisRequest) []models.BatchItem {
	items := make([]models.BatchItem, len(reqs))
	fresh := make([]*models.AnalysisReport, len(reqs))

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i := range reqs {
		i := i
		items[i].Ticker = reqs[i].Snapshot.Ticker
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Error = err.Error()
				return nil
			}
			snap, err := snapshotsource.FromPayload(reqs[i].Snapshot)
			if err != nil {
				uc.metrics.RecordError("input")
				items[i].Error = err.Error()
				return nil
			}
			r, cached, err := uc.run(ctx, pipeline.Request{Snapshot: snap, Assumptions: reqs[i].Assumptions, Constraints: reqs[i].Constraints})
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Ticker = r.Ticker
			items[i].Report = r
			if !cached {
				fresh[i] = r
			}
			return nil
		})
	}
	_ = g.Wait()

	var toPublish []*models.AnalysisReport
	for _, r := range fresh {
		if r != nil {
			toPublish = append(toPublish, r)
		}
	}
	uc.publishBatch(ctx, toPublish)
	return items
}

// LatestReport returns the most recent stored report for ticker.
func (uc *AnalysisUseCase) LatestReport(ctx context.Context, ticker string) (*models.AnalysisReport, error) {
	return uc.store.Latest(ctx, ticker)
}

// History lists stored analyses for ticker, newest first.
func (uc *AnalysisUseCase) History(ctx context.Context, ticker string, limit int) ([]domrepo.ReportSummary, error) {
	return uc.store.History(ctx, ticker, limit)
}

// run returns the cached report for identical inputs, or analyses, stores
// and caches a new one.
func (uc *AnalysisUseCase) run(ctx context.Context, req pipeline.Request) (*models.AnalysisReport, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	ticker := req.Snapshot.Ticker()
	id := uc.pipeline.ReportID(req)

	if uc.cache != nil {
		r, ok, err := uc.cache.Get(ctx, id)
		if err != nil {
			uc.l.Warn("report cache get failed", applogger.String("id", id), applogger.Error(err))
		}
		uc.metrics.RecordCache(ok)
		if ok {
			uc.l.Debug("report cache hit", applogger.String("ticker", ticker), applogger.String("id", id))
			return r, true, nil
		}
	}

	start := time.Now()
	report, err := uc.pipeline.Analyze(req)
	if err != nil {
		kind := "analysis"
		var se *models.StageError
		if errors.As(err, &se) {
			kind = "stage_" + se.Stage
		}
		uc.metrics.RecordError(kind)
		uc.l.Error("analysis failed", applogger.String("ticker", ticker), applogger.Error(err))
		return nil, false, err
	}
	r := &report

	uc.metrics.RecordAnalysis(string(r.Verdict.Verdict))
	uc.metrics.RecordWarnings(len(r.Warnings))
	uc.l.Info("analysis complete",
		applogger.String("ticker", r.Ticker),
		applogger.String("id", r.ID),
		applogger.String("verdict", string(r.Verdict.Verdict)),
		applogger.String("transition", r.Verdict.Transition),
		applogger.Float64("mos", r.Valuation.Base.MarginOfSafety),
		applogger.Float64("final_size", r.Sizing.FinalSize),
		applogger.Int("counter_arguments", len(r.CounterArguments)),
		applogger.Int("warnings", len(r.Warnings)),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	sctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.store.Save(sctx, r); err != nil {
		uc.metrics.RecordError("store")
		uc.l.Error("report store failed", applogger.String("id", r.ID), applogger.Error(err))
	}
	if uc.cache != nil {
		if err := uc.cache.Set(sctx, r); err != nil {
			uc.l.Warn("report cache set failed", applogger.String("id", r.ID), applogger.Error(err))
		}
	}
	return r, false, nil
}

func (uc *AnalysisUseCase) publish(ctx context.Context, r *models.AnalysisReport) {
	uc.publishBatch(ctx, []*models.AnalysisReport{r})
}

func (uc *AnalysisUseCase) publishBatch(ctx context.Context, reports []*models.AnalysisReport) {
	if len(reports) == 0 {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.publisher.PublishBatch(pctx, reports); err != nil {
		uc.metrics.RecordError("publish")
		uc.l.Error("verdict publish failed", applogger.Int("reports", len(reports)), applogger.Error(err))
		return
	}
	for _, r := range reports {
		uc.metrics.RecordPublished(string(r.Verdict.Verdict))
	}
}
