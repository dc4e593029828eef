package status

import (
	"context"
	"fmt"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/storage"
)

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Status"})
	return nil
}

// Service retrieves the detailed status of a run.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters for retrieving a run status.
type Request struct {
	// RunID is the run to inspect; empty means the most recent run.
	RunID string
}

// Status is the detailed status of a run.
type Status struct {
	Run   model.Run
	Tasks []model.TaskRecord
}

// Run retrieves a run and its task records.
func (s *Service) Run(ctx context.Context, req Request) (*Status, error) {
	var run *model.Run
	var err error

	if req.RunID == "" {
		run, err = s.repo.GetLatestRun(ctx)
	} else {
		run, err = s.repo.GetRun(ctx, req.RunID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	tasks, err := s.repo.ListTaskRecords(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list task records: %w", err)
	}

	s.logger.Debugf("retrieved status for run %s (%d tasks)", run.ID, len(tasks))

	return &Status{Run: *run, Tasks: tasks}, nil
}
