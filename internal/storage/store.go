package storage

import (
	"context"

	"neuralmesh/internal/model"
)

// Store defines the persistence operations for snapshots and training runs.
// Getters report a missing record with ok=false and a nil error.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (model.Snapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]model.SnapshotSummary, error)
	DeleteSnapshot(ctx context.Context, id string) error
	SaveRun(ctx context.Context, run model.TrainingRun) error
	GetRun(ctx context.Context, runID string) (model.TrainingRun, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.TrainingRun, error)
	SaveErrorHistory(ctx context.Context, runID string, history []float64) error
	GetErrorHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
