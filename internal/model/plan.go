package model

import (
	"fmt"
	"time"
)

// TaskCriticality tells whether a task failure aborts the run or is only recorded.
type TaskCriticality string

const (
	// TaskCriticalityRequired marks a task whose failure escalates to aborting the run.
	TaskCriticalityRequired TaskCriticality = "required"
	// TaskCriticalityOptional marks a task whose failure is recorded and ignored.
	TaskCriticalityOptional TaskCriticality = "optional"
)

// Task is a single externally executed unit of work inside a phase.
type Task struct {
	Name        string
	Command     string
	Timeout     time.Duration
	Criticality TaskCriticality
	Env         map[string]string
}

// BackgroundTask is a detached task launched once at run start.
// Background tasks are outside the run's supervision and cancellation
// contract: they are never waited on and never killed (the shell
// "fire and forget" equivalent).
type BackgroundTask struct {
	Name    string
	Command string
}

// Phase is a concurrently executed batch of tasks with an aggregate deadline.
type Phase struct {
	Name    string
	Timeout time.Duration
	Tasks   []Task
}

// Plan is the full ordered sequence of phases with a global deadline.
// Phases run strictly in order; tasks inside a phase run concurrently.
type Plan struct {
	Name       string
	Timeout    time.Duration
	Background []BackgroundTask
	Phases     []Phase
}

// Validate validates the plan.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan name is required: %w", ErrNotValid)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("plan timeout must be positive: %w", ErrNotValid)
	}
	if len(p.Phases) == 0 {
		return fmt.Errorf("plan requires at least one phase: %w", ErrNotValid)
	}

	phaseNames := map[string]struct{}{}
	for _, ph := range p.Phases {
		if ph.Name == "" {
			return fmt.Errorf("phase name is required: %w", ErrNotValid)
		}
		if _, ok := phaseNames[ph.Name]; ok {
			return fmt.Errorf("duplicated phase %q: %w", ph.Name, ErrNotValid)
		}
		phaseNames[ph.Name] = struct{}{}

		if err := ph.validate(); err != nil {
			return fmt.Errorf("phase %q: %w", ph.Name, err)
		}
	}

	for _, bt := range p.Background {
		if bt.Name == "" || bt.Command == "" {
			return fmt.Errorf("background tasks require name and command: %w", ErrNotValid)
		}
	}

	return nil
}

func (p *Phase) validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %w", ErrNotValid)
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("at least one task is required: %w", ErrNotValid)
	}

	taskNames := map[string]struct{}{}
	for _, t := range p.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task name is required: %w", ErrNotValid)
		}
		if _, ok := taskNames[t.Name]; ok {
			return fmt.Errorf("duplicated task %q: %w", t.Name, ErrNotValid)
		}
		taskNames[t.Name] = struct{}{}

		if err := t.validate(); err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
	}

	return nil
}

func (t *Task) validate() error {
	if t.Command == "" {
		return fmt.Errorf("command is required: %w", ErrNotValid)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %w", ErrNotValid)
	}
	if t.Criticality != TaskCriticalityRequired && t.Criticality != TaskCriticalityOptional {
		return fmt.Errorf("unknown criticality %q: %w", t.Criticality, ErrNotValid)
	}
	return nil
}
