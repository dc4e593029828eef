package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/notify"
)

// GroupConfig is the configuration for a Group.
type GroupConfig struct {
	Supervisor *Supervisor
	Sink       notify.Sink
	Logger     log.Logger
	// MaxParallel caps how many tasks of a phase run at once. 0 means no cap:
	// every task is launched immediately, bounded only by system limits.
	MaxParallel int
	// KeepGoing disables cancelling running siblings when a required task does
	// not succeed; the failure then only blocks progression to the next phase.
	KeepGoing bool
}

func (c *GroupConfig) defaults() error {
	if c.Supervisor == nil {
		return fmt.Errorf("supervisor is required")
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("max parallel can't be negative")
	}
	if c.Sink == nil {
		c.Sink = notify.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Group"})
	return nil
}

// Group runs the tasks of a phase concurrently, each one through the
// supervisor, and aggregates their terminal states.
type Group struct {
	supervisor  *Supervisor
	sink        notify.Sink
	logger      log.Logger
	maxParallel int
	keepGoing   bool
}

// NewGroup creates a new task group runner.
func NewGroup(cfg GroupConfig) (*Group, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Group{
		supervisor:  cfg.Supervisor,
		sink:        cfg.Sink,
		logger:      cfg.Logger,
		maxParallel: cfg.MaxParallel,
		keepGoing:   cfg.KeepGoing,
	}, nil
}

// Run executes every task of the phase concurrently and blocks until all of
// them reach a terminal state or the phase deadline fires, whichever comes
// first. Tasks still outstanding when the phase deadline fires are cancelled
// and recorded as timed out. The returned result has exactly one terminal
// state per submitted task.
func (g *Group) Run(ctx context.Context, phase model.Phase) model.PhaseResult {
	phaseCtx, cancelPhase := context.WithCancel(ctx)
	defer cancelPhase()

	var sem chan struct{}
	if g.maxParallel > 0 {
		sem = make(chan struct{}, g.maxParallel)
	}

	total := len(phase.Tasks)
	results := make(chan model.TaskResult, total)

	for _, t := range phase.Tasks {
		go func(task model.Task) {
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-phaseCtx.Done():
					// Never got a slot.
					results <- model.TaskResult{
						Name:        task.Name,
						Phase:       phase.Name,
						Criticality: task.Criticality,
						Status:      model.TaskStatusCancelled,
						ExitCode:    -1,
						Error:       "cancelled before start",
					}
					return
				}
			}
			results <- g.supervisor.Execute(phaseCtx, phase.Name, task)
		}(t)
	}

	deadline := time.NewTimer(phase.Timeout)
	defer deadline.Stop()

	res := model.PhaseResult{Name: phase.Name}
	completed := 0
	for completed < total {
		select {
		case tr := <-results:
			completed++

			// Tasks cancelled by the phase deadline (and not by a run level
			// abort) are a timeout outcome, not a cancellation one.
			if res.TimedOut && tr.Status == model.TaskStatusCancelled && ctx.Err() == nil {
				tr.Status = model.TaskStatusTimedOut
				tr.Error = "phase deadline exceeded"
			}
			res.Tasks = append(res.Tasks, tr)
			g.reportCompletion(phase.Name, tr, completed, total)

			// A run level abort already cancels everything, escalating again
			// would just be noise.
			if tr.RequiredUnmet() && !g.keepGoing && ctx.Err() == nil {
				g.sink.Report(phase.Name, fmt.Sprintf("required task %q unmet, cancelling siblings", tr.Name), notify.LevelError)
				cancelPhase()
			}

		case <-deadline.C:
			res.TimedOut = true
			g.sink.Report(phase.Name, fmt.Sprintf("phase deadline (%s) reached, cancelling outstanding tasks", phase.Timeout), notify.LevelWarn)
			cancelPhase()
		}
	}

	return res
}

func (g *Group) reportCompletion(phase string, tr model.TaskResult, completed, total int) {
	level := notify.LevelInfo
	switch tr.Status {
	case model.TaskStatusFailed, model.TaskStatusTimedOut:
		level = notify.LevelWarn
		if tr.Criticality == model.TaskCriticalityRequired {
			level = notify.LevelError
		}
	case model.TaskStatusCancelled:
		level = notify.LevelWarn
	}

	g.sink.Report(phase, fmt.Sprintf("%q %s (%d/%d complete)", tr.Name, string(tr.Status), completed, total), level)
}
