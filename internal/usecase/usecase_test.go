package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	"Moatline/internal/domain/service"
	"Moatline/internal/repository"
	"Moatline/internal/services/decision"
	"Moatline/internal/services/pipeline"
	"Moatline/internal/services/rules"
	"Moatline/pkg/cache"
	pkgkafka "Moatline/pkg/kafka"
)

type fakeMetrics struct {
	mu        sync.Mutex
	analyses  map[string]int
	errs      map[string]int
	published int
	hits      int
	misses    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{analyses: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordAnalysis(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[v]++
}

func (m *fakeMetrics) RecordStage(string, float64, error) {}

func (m *fakeMetrics) RecordWarnings(int) {}

func (m *fakeMetrics) RecordError(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[k]++
}

func (m *fakeMetrics) RecordPublished(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
}

func (m *fakeMetrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]*models.AnalysisReport
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, r *models.AnalysisReport) error {
	return p.PublishBatch(ctx, []*models.AnalysisReport{r})
}

func (p *fakePublisher) PublishBatch(_ context.Context, rs []*models.AnalysisReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, rs)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// failingStore fails every write.
type failingStore struct{ *repository.MemoryReportStore }

func (failingStore) Save(context.Context, *models.AnalysisReport) error {
	return errors.New("disk full")
}

type fakeSource struct {
	snaps map[string]models.Snapshot
}

func (s fakeSource) Fetch(_ context.Context, ticker string) (models.Snapshot, error) {
	snap, ok := s.snaps[ticker]
	if !ok {
		return models.Snapshot{}, service.ErrSnapshotNotFound
	}
	return snap, nil
}

func strongMetrics() map[string]float64 {
	return map[string]float64{
		models.MetricOwnerEarnings:     100,
		models.MetricCurrentPrice:      50,
		models.MetricSharesOutstanding: 10,
		models.MetricROIC:              0.22,
		models.MetricROE:               0.25,
		models.MetricMoatScore:         75,
		models.MetricCashConversion:    1.1,
		models.MetricBeneishMScore:     -2.9,
		models.MetricMarginStability:   0.04,
		models.MetricNetDebtToEBITDA:   0.8,
	}
}

func request(ticker string) models.AnalysisRequest {
	return models.AnalysisRequest{Snapshot: models.SnapshotPayload{
		Ticker:  ticker,
		Sector:  "industrials",
		Metrics: strongMetrics(),
	}}
}

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	rs, err := rules.NewEvaluator().Compile(rules.DefaultVetoRules())
	require.NoError(t, err)
	p, err := pipeline.New(rs, models.ValuationAssumptions{
		GrowthRate:         0.05,
		DiscountRate:       0.10,
		TerminalGrowthRate: 0.025,
		Horizon:            5,
		TerminalMethod:     models.TerminalPerpetuityGrowth,
	})
	require.NoError(t, err)
	return p
}

type fixture struct {
	uc    *AnalysisUseCase
	store domrepo.ReportStore
	pub   *fakePublisher
	m     *fakeMetrics
}

func newFixture(t *testing.T, store domrepo.ReportStore, opts ...AnalysisOption) fixture {
	t.Helper()
	if store == nil {
		store = repository.NewMemoryReportStore(10)
	}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	return fixture{
		uc:    NewAnalysisUseCase(newPipeline(t), store, pub, m, opts...),
		store: store,
		pub:   pub,
		m:     m,
	}
}

func TestAnalyzeStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	r, err := f.uc.Analyze(ctx, request("acme"))
	require.NoError(t, err)
	assert.Equal(t, "ACME", r.Ticker)
	assert.NotEmpty(t, r.ID)

	latest, err := f.uc.LatestReport(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)

	require.Len(t, f.pub.batches, 1)
	assert.Equal(t, r.ID, f.pub.batches[0][0].ID)
	assert.Equal(t, 1, f.m.analyses[string(r.Verdict.Verdict)])
	assert.Equal(t, 1, f.m.published)
}

func TestAnalyzeRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t, nil)
	req := request("ACME")
	req.Snapshot.Ticker = ""

	_, err := f.uc.Analyze(context.Background(), req)
	var ie *models.InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, f.m.errs["input"])
	assert.Empty(t, f.pub.batches)
}

func TestAnalyzeCacheHitSkipsPublish(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	f := newFixture(t, nil, WithReportCache(repository.NewCachedReports(mc, time.Minute)))

	first, err := f.uc.Analyze(ctx, request("ACME"))
	require.NoError(t, err)
	second, err := f.uc.Analyze(ctx, request("ACME"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Verdict.Verdict, second.Verdict.Verdict)
	assert.Equal(t, 1, f.m.hits)
	assert.Equal(t, 1, f.m.misses)
	assert.Len(t, f.pub.batches, 1)

	hist, err := f.uc.History(ctx, "ACME", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestAnalyzeOverridesChangeReportID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a, err := f.uc.Analyze(ctx, request("ACME"))
	require.NoError(t, err)

	req := request("ACME")
	as := a.Valuation.Base.Assumptions
	as.DiscountRate = 0.12
	req.Assumptions = &as
	b, err := f.uc.Analyze(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, b.Valuation.Base.IntrinsicValuePerShare, a.Valuation.Base.IntrinsicValuePerShare)
}

func TestAnalyzeStoreFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, failingStore{repository.NewMemoryReportStore(1)})

	r, err := f.uc.Analyze(context.Background(), request("ACME"))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, f.m.errs["store"])
	assert.Len(t, f.pub.batches, 1)
}

func TestAnalyzePublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.pub.err = errors.New("broker down")

	_, err := f.uc.Analyze(context.Background(), request("ACME"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.m.errs["publish"])
	assert.Zero(t, f.m.published)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Analyze(ctx, request("ACME"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeStageErrorMetric(t *testing.T) {
	f := newFixture(t, nil)
	req := request("ACME")
	req.Snapshot.Metrics[models.MetricCurrentPrice] = 0

	_, err := f.uc.Analyze(context.Background(), req)
	var se *models.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.StageValuation, se.Stage)
	var ie *models.InputError
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, f.m.errs["stage_valuation"])
	assert.Empty(t, f.pub.batches)
}

func TestAnalyzeBatch(t *testing.T) {
	f := newFixture(t, nil, WithBatchWorkers(2))
	bad := request("BAD")
	bad.Snapshot.Metrics = nil

	items := f.uc.AnalyzeBatch(context.Background(), []models.AnalysisRequest{
		request("AAA"), bad, request("CCC"),
	})
	require.Len(t, items, 3)

	assert.Equal(t, "AAA", items[0].Ticker)
	assert.NotNil(t, items[0].Report)
	assert.Equal(t, "BAD", items[1].Ticker)
	assert.Nil(t, items[1].Report)
	assert.NotEmpty(t, items[1].Error)
	assert.Equal(t, "CCC", items[2].Ticker)
	assert.NotNil(t, items[2].Report)

	require.Len(t, f.pub.batches, 1)
	require.Len(t, f.pub.batches[0], 2)
	assert.Equal(t, "AAA", f.pub.batches[0][0].Ticker)
	assert.Equal(t, "CCC", f.pub.batches[0][1].Ticker)
}

func TestAnalyzeTicker(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	_, err := f.uc.AnalyzeTicker(ctx, "ACME")
	assert.ErrorIs(t, err, ErrNoSnapshotSource)

	src := fakeSource{snaps: map[string]models.Snapshot{
		"ACME": models.NewSnapshot("ACME", "industrials", strongMetrics(), nil),
	}}
	f = newFixture(t, nil, WithSnapshotSource(src))

	r, err := f.uc.AnalyzeTicker(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", r.Ticker)

	_, err = f.uc.AnalyzeTicker(ctx, "NOPE")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)
	assert.Equal(t, 1, f.m.errs["snapshot_fetch"])
}

func TestRulesUseCase(t *testing.T) {
	uc := NewRulesUseCase(rules.NewEvaluator(), newPipeline(t))

	ok := uc.ValidateRule("roic<0.08 or roe<0.1")
	assert.True(t, ok.Valid)
	assert.Equal(t, "roic < 0.08 OR roe < 0.1", ok.Canonical)
	assert.Equal(t, []string{"roic", "roe"}, ok.Metrics)
	assert.Nil(t, ok.Offset)

	bad := uc.ValidateRule("roic <")
	assert.False(t, bad.Valid)
	assert.NotEmpty(t, bad.Error)
	require.NotNil(t, bad.Offset)

	assert.Equal(t, transitionNames(decision.Transitions()), transitionNames(uc.DecisionTable()))
	assert.Len(t, uc.VetoRules(), len(rules.DefaultVetoRules()))
}

// transitionNames projects the comparable part of a decision table.
func transitionNames(ts []decision.Transition) []string {
	out := make([]string, len(ts))
	for i, tr := range ts {
		out[i] = tr.Name + "=" + string(tr.Verdict)
	}
	return out
}

func TestKafkaAnalysisHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	h := NewKafkaAnalysisHandler("analysis.requests", f.uc, f.m, nil)
	assert.Equal(t, "analysis.requests", h.Topic())

	err := h.Handle(ctx, []byte("{not json"))
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))
	assert.Equal(t, 1, f.m.errs["consumer_unmarshal"])

	bad, _ := json.Marshal(models.AnalysisRequest{Snapshot: models.SnapshotPayload{Ticker: "X"}})
	err = h.Handle(ctx, bad)
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))

	good, _ := json.Marshal(request("ACME"))
	require.NoError(t, h.Handle(ctx, good))
	assert.Len(t, f.pub.batches, 1)
}

func TestKafkaAnalysisHandlerTransientError(t *testing.T) {
	f := newFixture(t, nil)
	h := NewKafkaAnalysisHandler("analysis.requests", f.uc, f.m, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	good, _ := json.Marshal(request("ACME"))
	err := h.Handle(ctx, good)
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
}
