package storage

import (
	"context"

	"github.com/slok/envup/internal/model"
)

// Repository is the interface for run history persistence.
type Repository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	GetLatestRun(ctx context.Context) (*model.Run, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
	CreateTaskRecords(ctx context.Context, records []model.TaskRecord) error
	ListTaskRecords(ctx context.Context, runID string) ([]model.TaskRecord, error)
}
