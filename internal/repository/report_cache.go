package repository

import (
	"context"
	"errors"
	"time"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	"Moatline/pkg/cache"
)

const reportKeyPrefix = "report"

// CachedReports stores reports in a cache.Service keyed by report ID.
type CachedReports struct {
	c   cache.Service
	ttl time.Duration
}

var _ domrepo.ReportCache = (*CachedReports)(nil)

func NewCachedReports(c cache.Service, ttl time.Duration) *CachedReports {
	return &CachedReports{c: c, ttl: ttl}
}

func (r *CachedReports) Get(ctx context.Context, id string) (*models.AnalysisReport, bool, error) {
	rep, err := cache.GetTyped[models.AnalysisReport](ctx, r.c, cache.GenerateKey(reportKeyPrefix, id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &rep, true, nil
}

func (r *CachedReports) Set(ctx context.Context, rep *models.AnalysisReport) error {
	return r.c.Set(ctx, cache.GenerateKey(reportKeyPrefix, rep.ID), rep, r.ttl)
}
