package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	pkgch "Moatline/pkg/clickhouse"
	applogger "Moatline/pkg/logger"
)

// CHReportStore implements ReportStore backed by ClickHouse. The full report
// is kept as JSON next to the columns used for history queries.
type CHReportStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
	now      func() time.Time
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)

func NewCHReportStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHReportStore {
	if database == "" {
		database = "moatline"
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHReportStore{
		ch:       ch,
		db:       ch.DB(),
		database: database,
		table:    database + ".analysis_reports",
		l:        l,
		now:      time.Now,
	}
}

func (s *CHReportStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, schemaStatements(s.database, s.table))
}

func schemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id String,
            ticker LowCardinality(String),
            sector LowCardinality(String),
            verdict LowCardinality(String),
            transition String,
            margin_of_safety Float64,
            intrinsic_value Float64,
            final_size Float64,
            binding_constraint String,
            analyzed_at DateTime64(3),
            report String
        ) ENGINE = ReplacingMergeTree(analyzed_at)
        ORDER BY (ticker, id)`, table),
	}
}

const reportColumns = "id, ticker, sector, verdict, transition, margin_of_safety, intrinsic_value, final_size, binding_constraint, analyzed_at, report"

func reportRow(r *models.AnalysisReport, at time.Time) ([]interface{}, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	return []interface{}{
		r.ID,
		r.Ticker,
		r.Sector,
		string(r.Verdict.Verdict),
		r.Verdict.Transition,
		r.Valuation.Base.MarginOfSafety,
		r.Valuation.Base.IntrinsicValuePerShare,
		r.Sizing.FinalSize,
		r.Sizing.BindingConstraint,
		at,
		string(body),
	}, nil
}

func (s *CHReportStore) Save(ctx context.Context, r *models.AnalysisReport) error {
	start := time.Now()
	args, err := reportRow(r, s.now().UTC())
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, reportColumns, placeholders)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_report error",
			applogger.String("ticker", r.Ticker),
			applogger.String("id", r.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("save report: %w", err)
	}
	s.l.Debug("clickhouse save_report ok",
		applogger.String("ticker", r.Ticker),
		applogger.String("id", r.ID),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHReportStore) Latest(ctx context.Context, ticker string) (*models.AnalysisReport, error) {
	q := fmt.Sprintf("SELECT report FROM %s WHERE ticker = ? ORDER BY analyzed_at DESC LIMIT 1", s.table)
	var body string
	if err := s.db.QueryRowContext(ctx, q, ticker).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}
	var r models.AnalysisReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func (s *CHReportStore) History(ctx context.Context, ticker string, limit int) ([]domrepo.ReportSummary, error) {
	q := fmt.Sprintf(`
        SELECT id, ticker, verdict, margin_of_safety, final_size, analyzed_at
        FROM %s
        WHERE ticker = ?
        ORDER BY analyzed_at DESC
        LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, limit)
	if err != nil {
		s.l.Error("clickhouse report_history query error",
			applogger.String("ticker", ticker),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("report history: %w", err)
	}
	defer rows.Close()

	out := make([]domrepo.ReportSummary, 0, limit)
	for rows.Next() {
		var (
			rs      domrepo.ReportSummary
			verdict string
		)
		if err := rows.Scan(&rs.ID, &rs.Ticker, &verdict, &rs.MOS, &rs.FinalSize, &rs.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		rs.Verdict = models.Verdict(verdict)
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHReportStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHReportStore) Close() error {
	return s.ch.Close()
}
