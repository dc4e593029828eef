package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/notify"
)

const defaultHeartbeatInterval = 10 * time.Second

// SupervisorConfig is the configuration for a Supervisor.
type SupervisorConfig struct {
	Sink     notify.Sink
	Logger   log.Logger
	Registry *Registry
	// HeartbeatInterval is the cadence of "still running" progress messages.
	HeartbeatInterval time.Duration
	// GracePeriod is the SIGTERM to SIGKILL wait applied on cancellation.
	GracePeriod time.Duration
}

func (c *SupervisorConfig) defaults() error {
	if c.Sink == nil {
		c.Sink = notify.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	if c.Registry == nil {
		c.Registry = NewRegistry()
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Supervisor"})
	return nil
}

// Supervisor wraps single task executions with a deadline, heartbeat emission
// and cancellation. It is stateless between executions and safe to use from
// multiple goroutines at once.
type Supervisor struct {
	sink      notify.Sink
	logger    log.Logger
	registry  *Registry
	heartbeat time.Duration
	grace     time.Duration
}

// NewSupervisor creates a new task supervisor.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Supervisor{
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		registry:  cfg.Registry,
		heartbeat: cfg.HeartbeatInterval,
		grace:     cfg.GracePeriod,
	}, nil
}

type execOutcome struct {
	result *model.ExecResult
	err    error
}

// Execute runs the task until it completes, its timeout fires or the context
// is cancelled, whichever happens first, and always returns a terminal
// result. A task racing its own deadline resolves to exactly one status: the
// select below picks a single branch and every terminal branch returns.
func (s *Supervisor) Execute(ctx context.Context, phase string, task model.Task) model.TaskResult {
	started := time.Now()
	res := model.TaskResult{
		Name:        task.Name,
		Phase:       phase,
		Criticality: task.Criticality,
		Status:      model.TaskStatusRunning,
		StartedAt:   started.UTC(),
	}

	proc, err := NewProcess(ProcessConfig{
		Command:     task.Command,
		Env:         envSlice(task.Env),
		GracePeriod: s.grace,
	})
	if err != nil {
		res.Status = model.TaskStatusFailed
		res.ExitCode = -1
		res.Error = err.Error()
		return res
	}

	// Track the live process so a run level abort can reach it.
	deregister := s.registry.Register(proc.Cancel)
	defer deregister()

	done := make(chan execOutcome, 1)
	go func() {
		result, err := proc.Run()
		done <- execOutcome{result: result, err: err}
	}()

	deadline := time.NewTimer(task.Timeout)
	defer deadline.Stop()
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case out := <-done:
			res.Duration = time.Since(started)
			if out.err != nil {
				res.Status = model.TaskStatusFailed
				res.ExitCode = -1
				res.Error = out.err.Error()
				return res
			}

			res.ExitCode = out.result.ExitCode
			res.Output = out.result.Output
			if out.result.ExitCode == 0 {
				res.Status = model.TaskStatusSucceeded
			} else {
				res.Status = model.TaskStatusFailed
				res.Error = fmt.Sprintf("exit code %d", out.result.ExitCode)
			}
			return res

		case <-heartbeat.C:
			hb := model.Heartbeat{
				Phase:    phase,
				TaskName: task.Name,
				Elapsed:  time.Since(started).Round(time.Second),
				Limit:    task.Timeout,
			}
			s.sink.Report(phase, fmt.Sprintf("%q still running (%s/%s)", hb.TaskName, hb.Elapsed, hb.Limit), notify.LevelInfo)

		case <-deadline.C:
			proc.Cancel()
			res.Duration = time.Since(started)
			res.Status = model.TaskStatusTimedOut
			res.ExitCode = -1
			res.Error = fmt.Sprintf("timed out after %s", task.Timeout)
			s.logger.Debugf("task %q timed out after %s", task.Name, task.Timeout)
			return res

		case <-ctx.Done():
			proc.Cancel()
			res.Duration = time.Since(started)
			res.Status = model.TaskStatusCancelled
			res.ExitCode = -1
			res.Error = "cancelled"
			return res
		}
	}
}

// envSlice renders an env map as sorted KEY=VALUE pairs.
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return pairs
}
