package service

import (
	"context"
	"errors"

	"Moatline/internal/domain/models"
)

// ErrSnapshotNotFound is returned when the upstream service has no snapshot
// for the ticker.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrUpstream wraps any other failure talking to the data-quality service.
var ErrUpstream = errors.New("snapshot service unavailable")

// SnapshotSource fetches a validated financial snapshot for a ticker from
// the upstream data-quality service.
type SnapshotSource interface {
	Fetch(ctx context.Context, ticker string) (models.Snapshot, error)
}
