package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	runs    map[string]model.Run
	records map[string][]model.TaskRecord
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:    map[string]model.Run{},
		records: map[string][]model.TaskRecord{},
		logger:  cfg.Logger,
	}, nil
}

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run with id %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = run
	r.logger.Debugf("Created run in repository: %s", run.ID)

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	runCopy := run
	return &runCopy, nil
}

// GetLatestRun retrieves the most recently created run.
func (r *Repository) GetLatestRun(ctx context.Context) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.Run
	for _, run := range r.runs {
		runCopy := run
		if latest == nil || runCopy.CreatedAt.After(latest.CreatedAt) {
			latest = &runCopy
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no runs: %w", model.ErrNotFound)
	}

	return latest, nil
}

// ListRuns lists every run, most recent first.
func (r *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}

	r.runs[run.ID] = run
	return nil
}

// CreateTaskRecords stores task records for a run.
func (r *Repository) CreateTaskRecords(ctx context.Context, records []model.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if _, ok := r.runs[rec.RunID]; !ok {
			return fmt.Errorf("run %s: %w", rec.RunID, model.ErrNotFound)
		}
		r.records[rec.RunID] = append(r.records[rec.RunID], rec)
	}

	return nil
}

// ListTaskRecords lists the task records of a run in sequence order.
func (r *Repository) ListTaskRecords(ctx context.Context, runID string) ([]model.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	records := make([]model.TaskRecord, len(r.records[runID]))
	copy(records, r.records[runID])
	sort.Slice(records, func(i, j int) bool { return records[i].Sequence < records[j].Sequence })

	return records, nil
}
