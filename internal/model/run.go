package model

import (
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusTimedOut  TaskStatus = "timed_out"
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusDetached marks background tasks that were launched but never supervised.
	TaskStatusDetached TaskStatus = "detached"
)

// Terminal returns true if the status is a terminal one (the task will not change anymore).
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusTimedOut, TaskStatusCancelled:
		return true
	}
	return false
}

// RunStatus represents the state of a run.
type RunStatus string

const (
	RunStatusInitializing RunStatus = "initializing"
	RunStatusRunning      RunStatus = "running"
	RunStatusCompleted    RunStatus = "completed"
	RunStatusAborted      RunStatus = "aborted"
)

// AbortReason tells why a run ended aborted.
type AbortReason string

const (
	AbortReasonNone          AbortReason = ""
	AbortReasonRequiredTask  AbortReason = "required-task"
	AbortReasonGlobalTimeout AbortReason = "global-timeout"
	AbortReasonCancelled     AbortReason = "cancelled"
)

// ExecResult is the raw outcome of one external process execution.
type ExecResult struct {
	// ExitCode is the exit code of the executed command.
	ExitCode int
	// Output is the combined stdout and stderr of the command.
	Output []byte
}

// TaskResult is the terminal outcome of one supervised task.
type TaskResult struct {
	Name        string
	Phase       string
	Criticality TaskCriticality
	Status      TaskStatus
	ExitCode    int
	Output      []byte
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

// Succeeded returns true if the task ended successfully.
func (r TaskResult) Succeeded() bool { return r.Status == TaskStatusSucceeded }

// RequiredUnmet returns true if the task was required and did not succeed.
func (r TaskResult) RequiredUnmet() bool {
	return r.Criticality == TaskCriticalityRequired && !r.Succeeded()
}

// PhaseResult is the aggregate of the terminal task states of a phase.
type PhaseResult struct {
	Name string
	// Tasks holds one terminal result per submitted task.
	Tasks []TaskResult
	// TimedOut is true when the phase deadline fired with tasks still outstanding.
	TimedOut bool
}

// NamesByStatus returns the task names that ended with the given status.
func (r PhaseResult) NamesByStatus(st TaskStatus) []string {
	names := []string{}
	for _, t := range r.Tasks {
		if t.Status == st {
			names = append(names, t.Name)
		}
	}
	return names
}

// RequiredUnmet returns the required tasks that did not succeed.
func (r PhaseResult) RequiredUnmet() []TaskResult {
	unmet := []TaskResult{}
	for _, t := range r.Tasks {
		if t.RequiredUnmet() {
			unmet = append(unmet, t)
		}
	}
	return unmet
}

// RunReport is the final outcome of a whole run.
type RunReport struct {
	PlanName   string
	Status     RunStatus
	Reason     AbortReason
	StartedAt  time.Time
	FinishedAt time.Time
	Phases     []PhaseResult
	// Background holds one detached entry per launched background task.
	// These never reach a terminal state and never affect the run outcome.
	Background []TaskResult
}

// TaskResults returns every task result of the run in phase order.
func (r RunReport) TaskResults() []TaskResult {
	results := []TaskResult{}
	for _, ph := range r.Phases {
		results = append(results, ph.Tasks...)
	}
	return results
}

// Failed returns true if the run must be reported as a failure to the caller
// (aborted run or any required task unmet).
func (r RunReport) Failed() bool {
	if r.Status != RunStatusCompleted {
		return true
	}
	for _, ph := range r.Phases {
		if len(ph.RequiredUnmet()) > 0 {
			return true
		}
	}
	return false
}

// Heartbeat is a periodic "still working" signal emitted while a task runs.
// It is informational only and never persisted.
type Heartbeat struct {
	Phase    string
	TaskName string
	Elapsed  time.Duration
	Limit    time.Duration
}

// Run is the persisted record of a run.
type Run struct {
	ID         string
	PlanName   string
	Status     RunStatus
	Reason     AbortReason
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt *time.Time
}

// TaskRecord is the persisted record of a single task execution inside a run.
type TaskRecord struct {
	ID        string
	RunID     string
	Phase     string
	Sequence  int
	Name      string
	Status    TaskStatus
	ExitCode  int
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}
