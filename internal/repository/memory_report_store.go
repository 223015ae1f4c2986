package repository

import (
	"context"
	"sync"
	"time"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
)

// MemoryReportStore keeps reports in process. Used when ClickHouse is
// disabled and in tests.
type MemoryReportStore struct {
	mu       sync.RWMutex
	byTicker map[string][]storedReport
	max      int
	now      func() time.Time
}

type storedReport struct {
	report *models.AnalysisReport
	at     time.Time
}

var _ domrepo.ReportStore = (*MemoryReportStore)(nil)

// NewMemoryReportStore keeps at most maxPerTicker reports per ticker
// (unbounded when <= 0).
func NewMemoryReportStore(maxPerTicker int) *MemoryReportStore {
	return &MemoryReportStore{
		byTicker: make(map[string][]storedReport),
		max:      maxPerTicker,
		now:      time.Now,
	}
}

func (s *MemoryReportStore) Init(context.Context) error { return nil }

func (s *MemoryReportStore) Save(_ context.Context, r *models.AnalysisReport) error {
	cp := *r
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.byTicker[r.Ticker], storedReport{report: &cp, at: s.now()})
	if s.max > 0 && len(list) > s.max {
		list = list[len(list)-s.max:]
	}
	s.byTicker[r.Ticker] = list
	return nil
}

func (s *MemoryReportStore) Latest(_ context.Context, ticker string) (*models.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byTicker[ticker]
	if len(list) == 0 {
		return nil, domrepo.ErrNotFound
	}
	cp := *list[len(list)-1].report
	return &cp, nil
}

func (s *MemoryReportStore) History(_ context.Context, ticker string, limit int) ([]domrepo.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byTicker[ticker]
	out := make([]domrepo.ReportSummary, 0, len(list))
	// newest first
	for i := len(list) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, summarize(list[i].report, list[i].at))
	}
	return out, nil
}

func (s *MemoryReportStore) Health(context.Context) error { return nil }

func (s *MemoryReportStore) Close() error { return nil }

func summarize(r *models.AnalysisReport, at time.Time) domrepo.ReportSummary {
	return domrepo.ReportSummary{
		ID:         r.ID,
		Ticker:     r.Ticker,
		Verdict:    r.Verdict.Verdict,
		MOS:        r.Valuation.Base.MarginOfSafety,
		FinalSize:  r.Sizing.FinalSize,
		AnalyzedAt: at,
	}
}
