package runner

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/notify"
)

// PlanRunner knows how to execute a whole provisioning plan.
type PlanRunner interface {
	Run(ctx context.Context, plan model.Plan) (*model.RunReport, error)
}

// ControllerConfig is the configuration for a Controller.
type ControllerConfig struct {
	Sink   notify.Sink
	Logger log.Logger
	// HeartbeatInterval is the cadence of task "still running" messages.
	HeartbeatInterval time.Duration
	// GracePeriod is the SIGTERM to SIGKILL wait applied on cancellation.
	GracePeriod time.Duration
	// MaxParallel caps per-phase task concurrency (0 = unbounded).
	MaxParallel int
	// KeepGoing disables cancelling running siblings on required task failure.
	KeepGoing bool
	// ContinueOnError disables aborting the run when a required task is unmet;
	// later phases still execute and the final report reflects the failure.
	ContinueOnError bool
}

func (c *ControllerConfig) defaults() error {
	if c.Sink == nil {
		c.Sink = notify.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Controller"})
	return nil
}

// Controller owns a whole run: the global deadline, the strictly sequential
// execution of phases and the cleanup path shared by deadline expiry,
// external cancellation and required task failures.
type Controller struct {
	group           *Group
	registry        *Registry
	sink            notify.Sink
	logger          log.Logger
	continueOnError bool

	mu     sync.Mutex
	status model.RunStatus
}

// NewController creates a new run controller with its own supervisor, task
// group and live-process registry.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := NewRegistry()

	supervisor, err := NewSupervisor(SupervisorConfig{
		Sink:              cfg.Sink,
		Logger:            cfg.Logger,
		Registry:          registry,
		HeartbeatInterval: cfg.HeartbeatInterval,
		GracePeriod:       cfg.GracePeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create supervisor: %w", err)
	}

	group, err := NewGroup(GroupConfig{
		Supervisor:  supervisor,
		Sink:        cfg.Sink,
		Logger:      cfg.Logger,
		MaxParallel: cfg.MaxParallel,
		KeepGoing:   cfg.KeepGoing,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task group: %w", err)
	}

	return &Controller{
		group:           group,
		registry:        registry,
		sink:            cfg.Sink,
		logger:          cfg.Logger,
		continueOnError: cfg.ContinueOnError,
		status:          model.RunStatusInitializing,
	}, nil
}

// Status returns the current run state.
func (c *Controller) Status() model.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) setStatus(st model.RunStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = st
}

// Run executes the plan's phases strictly in order: phase N+1 never starts
// before phase N's result exists. The whole run races against the plan's
// global deadline and the caller's context (where external signals arrive);
// both route into the same abort path, which cancels every live task through
// the registry, waits a bounded grace and emits a final report.
//
// The returned error distinguishes required task failures, the global
// deadline and external cancellation; the report is returned in all cases so
// partial results can be inspected and persisted.
func (c *Controller) Run(ctx context.Context, plan model.Plan) (*model.RunReport, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	c.setStatus(model.RunStatusRunning)
	report := &model.RunReport{
		PlanName:  plan.Name,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	// Detached tasks are launched once and intentionally left outside the
	// supervision and cancellation contract.
	report.Background = c.startBackground(plan.Background)

	runCtx, cancel := context.WithTimeout(ctx, plan.Timeout)
	defer cancel()

	var requiredErr error
	for _, phase := range plan.Phases {
		if runCtx.Err() != nil {
			break
		}

		c.sink.Report(phase.Name, fmt.Sprintf("phase started (%d tasks)", len(phase.Tasks)), notify.LevelInfo)
		phaseRes := c.group.Run(runCtx, phase)
		report.Phases = append(report.Phases, phaseRes)

		if unmet := phaseRes.RequiredUnmet(); len(unmet) > 0 {
			requiredErr = fmt.Errorf("phase %q has %d required task(s) unmet: %w", phase.Name, len(unmet), model.ErrRequiredTask)
			if !c.continueOnError {
				break
			}
			c.logger.Warningf("continuing after required failure on phase %q", phase.Name)
		}
	}

	report.FinishedAt = time.Now().UTC()

	switch {
	case ctx.Err() != nil:
		c.abort(report, model.AbortReasonCancelled)
		return report, fmt.Errorf("run was cancelled: %w", model.ErrRunCancelled)

	case runCtx.Err() != nil:
		c.abort(report, model.AbortReasonGlobalTimeout)
		return report, fmt.Errorf("global deadline (%s) exceeded: %w", plan.Timeout, model.ErrRunTimeout)

	case requiredErr != nil && !c.continueOnError:
		c.abort(report, model.AbortReasonRequiredTask)
		return report, requiredErr
	}

	c.setStatus(model.RunStatusCompleted)
	report.Status = model.RunStatusCompleted
	c.summary(report)

	if requiredErr != nil {
		return report, requiredErr
	}
	return report, nil
}

// abort is the single cleanup path for every abort cause. It cancels every
// live task handle through the registry and waits for the cancellations to
// take effect before reporting.
func (c *Controller) abort(report *model.RunReport, reason model.AbortReason) {
	c.setStatus(model.RunStatusAborted)
	report.Status = model.RunStatusAborted
	report.Reason = reason

	c.registry.CancelAll()
	c.sink.Report(report.PlanName, fmt.Sprintf("run aborted (%s)", reason), notify.LevelError)
	c.summary(report)
}

func (c *Controller) summary(report *model.RunReport) {
	var succeeded, failed, timedOut, cancelled int
	for _, tr := range report.TaskResults() {
		switch tr.Status {
		case model.TaskStatusSucceeded:
			succeeded++
		case model.TaskStatusFailed:
			failed++
		case model.TaskStatusTimedOut:
			timedOut++
		case model.TaskStatusCancelled:
			cancelled++
		}
	}

	level := notify.LevelInfo
	if report.Failed() {
		level = notify.LevelError
	}
	c.sink.Report(report.PlanName, fmt.Sprintf("run %s: %d succeeded, %d failed, %d timed out, %d cancelled",
		report.Status, succeeded, failed, timedOut, cancelled), level)
}

// startBackground launches detached tasks. They are reaped on exit to avoid
// zombies but never waited on nor cancelled. A failed launch is recorded as a
// failure; a successful one stays detached forever.
func (c *Controller) startBackground(tasks []model.BackgroundTask) []model.TaskResult {
	results := make([]model.TaskResult, 0, len(tasks))
	for _, bt := range tasks {
		res := model.TaskResult{
			Name:      bt.Name,
			Phase:     "background",
			Status:    model.TaskStatusDetached,
			StartedAt: time.Now().UTC(),
		}

		cmd := exec.Command("/bin/sh", "-c", bt.Command)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		if err := cmd.Start(); err != nil {
			c.logger.Warningf("could not start background task %q: %v", bt.Name, err)
			res.Status = model.TaskStatusFailed
			res.ExitCode = -1
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		c.logger.Infof("started background task %q (pid %d)", bt.Name, cmd.Process.Pid)
		go func() { _ = cmd.Wait() }()
		results = append(results, res)
	}
	return results
}
