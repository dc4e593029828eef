package run

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/runner"
	"github.com/slok/envup/internal/storage"
)

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Runner     runner.PlanRunner
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	return nil
}

// Service executes provisioning plans and records their history.
type Service struct {
	runner runner.PlanRunner
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runner: cfg.Runner,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters for executing a plan.
type Request struct {
	Plan model.Plan
}

// Run executes the plan and persists the run and its task outcomes. The
// report is returned even when the run fails so callers can render partial
// results; history persistence after the run started is best effort and only
// logged, the run outcome always wins.
func (s *Service) Run(ctx context.Context, req Request) (*model.RunReport, error) {
	if err := req.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	now := time.Now().UTC()
	run := model.Run{
		ID:        ulid.Make().String(),
		PlanName:  req.Plan.Name,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		StartedAt: now,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}

	s.logger.Infof("executing plan %q (run %s)", req.Plan.Name, run.ID)
	report, runErr := s.runner.Run(ctx, req.Plan)
	if report == nil {
		// The plan never started (e.g. invalid); reflect it in history.
		run.Status = model.RunStatusAborted
		run.Reason = model.AbortReasonNone
		s.finishRun(run)
		return nil, runErr
	}

	if err := s.repo.CreateTaskRecords(context.WithoutCancel(ctx), taskRecords(run.ID, report)); err != nil {
		s.logger.Warningf("could not store task records: %v", err)
	}

	run.Status = report.Status
	run.Reason = report.Reason
	s.finishRun(run)

	if runErr != nil {
		return report, fmt.Errorf("run %s failed: %w", run.ID, runErr)
	}

	s.logger.Infof("run %s completed", run.ID)
	return report, nil
}

func (s *Service) finishRun(run model.Run) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	// Don't let a cancelled context block recording the outcome.
	if err := s.repo.UpdateRun(context.Background(), run); err != nil {
		s.logger.Warningf("could not update run %s: %v", run.ID, err)
	}
}

func taskRecords(runID string, report *model.RunReport) []model.TaskRecord {
	records := []model.TaskRecord{}
	seq := 0
	results := make([]model.TaskResult, 0, len(report.Background))
	results = append(results, report.Background...)
	results = append(results, report.TaskResults()...)
	for _, tr := range results {
		records = append(records, model.TaskRecord{
			ID:       ulid.Make().String(),
			RunID:    runID,
			Phase:    tr.Phase,
			Sequence: seq,
			Name:     tr.Name,
			Status:   tr.Status,
			ExitCode: tr.ExitCode,
			Duration: tr.Duration,
			Error:    tr.Error,
		})
		seq++
	}
	return records
}
