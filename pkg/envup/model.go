package envup

import (
	"errors"
	"time"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/notify"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a plan or request is invalid.
	ErrNotValid = errors.New("not valid")
	// ErrRequiredTask is returned when a required task did not succeed.
	ErrRequiredTask = errors.New("required task unmet")
	// ErrRunTimeout is returned when the plan's global deadline expired.
	ErrRunTimeout = errors.New("run timed out")
	// ErrRunCancelled is returned when the run was cancelled from outside.
	ErrRunCancelled = errors.New("run cancelled")
)

// TaskStatus represents the terminal state of a task.
type TaskStatus string

const (
	// TaskStatusSucceeded indicates the task's command exited with code 0.
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusFailed indicates the task's command exited with a non-zero code.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusTimedOut indicates the task exceeded its time limit and was killed.
	TaskStatusTimedOut TaskStatus = "timed_out"
	// TaskStatusCancelled indicates the task was cancelled before finishing.
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusDetached indicates a background task that was launched and left
	// running, it has no terminal state.
	TaskStatusDetached TaskStatus = "detached"
)

// RunStatus represents the state of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is still executing phases.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every phase was executed.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusAborted indicates the run stopped early (deadline, cancellation
	// or required task failure).
	RunStatusAborted RunStatus = "aborted"
)

// AbortReason tells why a run ended aborted.
type AbortReason string

const (
	AbortReasonNone          AbortReason = ""
	AbortReasonRequiredTask  AbortReason = "required-task"
	AbortReasonGlobalTimeout AbortReason = "global-timeout"
	AbortReasonCancelled     AbortReason = "cancelled"
)

// Level is the severity of a progress event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Plan describes a whole provisioning run: an ordered list of phases plus
// optional detached background tasks.
//
// Name and at least one phase are required. Zero timeouts get defaults
// (30m for the plan, 5m per task, phases inherit the plan timeout).
type Plan struct {
	// Name identifies the plan.
	Name string
	// Timeout is the global deadline for the whole run. Default: 30m.
	Timeout time.Duration
	// Background tasks are launched at run start and never supervised,
	// waited on, nor cancelled.
	Background []BackgroundTask
	// Phases run strictly in order; phase N+1 never starts before phase N ends.
	Phases []Phase
}

// BackgroundTask is a detached long-lived process launched at run start.
type BackgroundTask struct {
	Name    string
	Command string
}

// Phase is a named group of tasks that run concurrently.
type Phase struct {
	// Name identifies the phase. Must be unique within the plan.
	Name string
	// Timeout is the phase deadline. Default: the plan timeout.
	Timeout time.Duration
	// Tasks run concurrently within the phase.
	Tasks []Task
}

// Task is a single supervised shell command.
type Task struct {
	// Name identifies the task. Must be unique within its phase.
	Name string
	// Command is executed with `/bin/sh -c`.
	Command string
	// Timeout is the task deadline. Default: 5m.
	Timeout time.Duration
	// Optional marks the task as non-critical: its failure is reported but
	// never aborts the run.
	Optional bool
	// Env is extra environment for the command, on top of the process env.
	Env map[string]string
}

// TaskResult is the terminal outcome of one supervised task.
type TaskResult struct {
	Name      string
	Phase     string
	Optional  bool
	Status    TaskStatus
	ExitCode  int
	Output    []byte
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// PhaseResult aggregates the terminal task results of one phase.
type PhaseResult struct {
	Name string
	// Tasks holds one terminal result per submitted task.
	Tasks []TaskResult
	// TimedOut is true when the phase deadline fired with tasks outstanding.
	TimedOut bool
}

// Report is the final outcome of a whole run.
//
// A Report is returned even when [Client.Run] returns an error, so partial
// results can be inspected.
type Report struct {
	PlanName   string
	Status     RunStatus
	Reason     AbortReason
	StartedAt  time.Time
	FinishedAt time.Time
	Phases     []PhaseResult
	// Background holds one entry per launched background task, detached on a
	// successful launch or failed when the process could not be started.
	Background []TaskResult
}

// TaskResults returns every task result of the run in phase order.
func (r Report) TaskResults() []TaskResult {
	results := []TaskResult{}
	for _, ph := range r.Phases {
		results = append(results, ph.Tasks...)
	}
	return results
}

// Run is the persisted record of a past run.
type Run struct {
	// ID is the unique identifier (ULID) assigned at run start.
	ID string
	// PlanName is the name of the executed plan.
	PlanName string
	// Status is the final run state (running if the process died mid-run).
	Status RunStatus
	// Reason is set when the run aborted.
	Reason AbortReason
	// CreatedAt is when the run record was created.
	CreatedAt time.Time
	// StartedAt is when the run started executing.
	StartedAt time.Time
	// FinishedAt is when the run ended. Nil if it never recorded an end.
	FinishedAt *time.Time
}

// TaskRecord is the persisted record of a single task execution of a run.
type TaskRecord struct {
	RunID    string
	Phase    string
	Sequence int
	Name     string
	Status   TaskStatus
	ExitCode int
	Duration time.Duration
	Error    string
}

// RunOpts configures run behavior.
//
// Pass nil to [Client.Run] to use defaults (no progress callback, unbounded
// per-phase parallelism, abort on required task failure).
type RunOpts struct {
	// OnProgress receives phase and task lifecycle events as they happen.
	OnProgress func(phase, message string, level Level)
	// MaxParallel caps per-phase task concurrency. 0 means unbounded.
	MaxParallel int
	// HeartbeatInterval is the cadence of "still running" progress events
	// for long tasks. Default: 10s.
	HeartbeatInterval time.Duration
	// KeepGoing keeps sibling tasks running when a required task fails,
	// instead of cancelling them.
	KeepGoing bool
	// ContinueOnError executes later phases even after a required task
	// failure. The run still reports [ErrRequiredTask] at the end.
	ContinueOnError bool
}

// --- Conversion helpers ---

func toInternalPlan(p Plan) model.Plan {
	mp := model.Plan{
		Name:    p.Name,
		Timeout: p.Timeout,
	}
	if mp.Timeout == 0 {
		mp.Timeout = 30 * time.Minute
	}

	for _, b := range p.Background {
		mp.Background = append(mp.Background, model.BackgroundTask{Name: b.Name, Command: b.Command})
	}

	for _, ph := range p.Phases {
		mph := model.Phase{Name: ph.Name, Timeout: ph.Timeout}
		if mph.Timeout == 0 {
			mph.Timeout = mp.Timeout
		}

		for _, t := range ph.Tasks {
			criticality := model.TaskCriticalityRequired
			if t.Optional {
				criticality = model.TaskCriticalityOptional
			}
			timeout := t.Timeout
			if timeout == 0 {
				timeout = 5 * time.Minute
			}
			mph.Tasks = append(mph.Tasks, model.Task{
				Name:        t.Name,
				Command:     t.Command,
				Timeout:     timeout,
				Criticality: criticality,
				Env:         t.Env,
			})
		}

		mp.Phases = append(mp.Phases, mph)
	}

	return mp
}

func fromInternalPlan(p model.Plan) Plan {
	plan := Plan{
		Name:    p.Name,
		Timeout: p.Timeout,
	}

	for _, b := range p.Background {
		plan.Background = append(plan.Background, BackgroundTask{Name: b.Name, Command: b.Command})
	}

	for _, ph := range p.Phases {
		phase := Phase{Name: ph.Name, Timeout: ph.Timeout}
		for _, t := range ph.Tasks {
			phase.Tasks = append(phase.Tasks, Task{
				Name:     t.Name,
				Command:  t.Command,
				Timeout:  t.Timeout,
				Optional: t.Criticality == model.TaskCriticalityOptional,
				Env:      t.Env,
			})
		}
		plan.Phases = append(plan.Phases, phase)
	}

	return plan
}

func fromInternalReport(r *model.RunReport) *Report {
	if r == nil {
		return nil
	}

	report := &Report{
		PlanName:   r.PlanName,
		Status:     RunStatus(r.Status),
		Reason:     AbortReason(r.Reason),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}

	for _, ph := range r.Phases {
		phase := PhaseResult{Name: ph.Name, TimedOut: ph.TimedOut}
		for _, t := range ph.Tasks {
			phase.Tasks = append(phase.Tasks, TaskResult{
				Name:      t.Name,
				Phase:     t.Phase,
				Optional:  t.Criticality == model.TaskCriticalityOptional,
				Status:    TaskStatus(t.Status),
				ExitCode:  t.ExitCode,
				Output:    t.Output,
				Error:     t.Error,
				StartedAt: t.StartedAt,
				Duration:  t.Duration,
			})
		}
		report.Phases = append(report.Phases, phase)
	}

	for _, t := range r.Background {
		report.Background = append(report.Background, TaskResult{
			Name:      t.Name,
			Phase:     t.Phase,
			Status:    TaskStatus(t.Status),
			ExitCode:  t.ExitCode,
			Error:     t.Error,
			StartedAt: t.StartedAt,
		})
	}

	return report
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:         r.ID,
		PlanName:   r.PlanName,
		Status:     RunStatus(r.Status),
		Reason:     AbortReason(r.Reason),
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	result := make([]Run, len(rs))
	for i, r := range rs {
		result[i] = fromInternalRun(r)
	}
	return result
}

func fromInternalTaskRecords(trs []model.TaskRecord) []TaskRecord {
	result := make([]TaskRecord, len(trs))
	for i, tr := range trs {
		result[i] = TaskRecord{
			RunID:    tr.RunID,
			Phase:    tr.Phase,
			Sequence: tr.Sequence,
			Name:     tr.Name,
			Status:   TaskStatus(tr.Status),
			ExitCode: tr.ExitCode,
			Duration: tr.Duration,
			Error:    tr.Error,
		}
	}
	return result
}

func toInternalSink(opts *RunOpts) notify.Sink {
	if opts == nil || opts.OnProgress == nil {
		return notify.Noop
	}
	fn := opts.OnProgress
	return notify.SinkFunc(func(phase, message string, level notify.Level) {
		fn(phase, message, Level(level))
	})
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case isInternalError(err, model.ErrRequiredTask):
		return joinErrors(err, ErrRequiredTask)
	case isInternalError(err, model.ErrRunTimeout):
		return joinErrors(err, ErrRunTimeout)
	case isInternalError(err, model.ErrRunCancelled):
		return joinErrors(err, ErrRunCancelled)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
