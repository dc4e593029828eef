package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/envup/internal/model"
)

const (
	defaultPlanTimeout = 30 * time.Minute
	defaultTaskTimeout = 5 * time.Minute
)

// PlanYAMLRepository loads provisioning plans from YAML files.
type PlanYAMLRepository struct {
	fs fs.FS
}

// NewPlanYAMLRepository creates a new YAML plan repository.
func NewPlanYAMLRepository(filesystem fs.FS) *PlanYAMLRepository {
	return &PlanYAMLRepository{fs: filesystem}
}

// GetPlan loads a plan from a YAML file and returns a validated domain model.
func (r *PlanYAMLRepository) GetPlan(ctx context.Context, path string) (model.Plan, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Plan{}, fmt.Errorf("reading plan file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Plan{}, ctx.Err()
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Plan{}, fmt.Errorf("parsing YAML: %w", err)
	}

	plan, err := p.toModel()
	if err != nil {
		return model.Plan{}, fmt.Errorf("invalid plan: %w", err)
	}

	if err := plan.Validate(); err != nil {
		return model.Plan{}, fmt.Errorf("invalid plan: %w", err)
	}

	return plan, nil
}

// Plan represents the YAML structure for a provisioning plan.
type Plan struct {
	Name       string            `yaml:"name"`
	Timeout    string            `yaml:"timeout,omitempty"`
	Defaults   Defaults          `yaml:"defaults,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Background []BackgroundTask  `yaml:"background,omitempty"`
	Phases     []Phase           `yaml:"phases"`
}

// Defaults represents the YAML structure for plan-wide task defaults.
type Defaults struct {
	TaskTimeout string `yaml:"task_timeout,omitempty"`
}

// BackgroundTask represents the YAML structure for a detached task.
type BackgroundTask struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

// Phase represents the YAML structure for a phase.
type Phase struct {
	Name    string `yaml:"name"`
	Timeout string `yaml:"timeout,omitempty"`
	Tasks   []Task `yaml:"tasks"`
}

// Task represents the YAML structure for a task.
type Task struct {
	Name     string            `yaml:"name"`
	Command  string            `yaml:"command"`
	Timeout  string            `yaml:"timeout,omitempty"`
	Optional bool              `yaml:"optional,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
}

func (p Plan) toModel() (model.Plan, error) {
	planTimeout, err := parseDuration(p.Timeout, defaultPlanTimeout)
	if err != nil {
		return model.Plan{}, fmt.Errorf("plan timeout: %w", err)
	}

	taskTimeout, err := parseDuration(p.Defaults.TaskTimeout, defaultTaskTimeout)
	if err != nil {
		return model.Plan{}, fmt.Errorf("default task timeout: %w", err)
	}

	plan := model.Plan{
		Name:    p.Name,
		Timeout: planTimeout,
	}

	for _, b := range p.Background {
		plan.Background = append(plan.Background, model.BackgroundTask{
			Name:    b.Name,
			Command: b.Command,
		})
	}

	for _, ph := range p.Phases {
		// Phases without an explicit deadline get the plan's global one.
		phTimeout, err := parseDuration(ph.Timeout, planTimeout)
		if err != nil {
			return model.Plan{}, fmt.Errorf("phase %q timeout: %w", ph.Name, err)
		}

		phase := model.Phase{
			Name:    ph.Name,
			Timeout: phTimeout,
		}

		for _, t := range ph.Tasks {
			tTimeout, err := parseDuration(t.Timeout, taskTimeout)
			if err != nil {
				return model.Plan{}, fmt.Errorf("task %q timeout: %w", t.Name, err)
			}

			criticality := model.TaskCriticalityRequired
			if t.Optional {
				criticality = model.TaskCriticalityOptional
			}

			phase.Tasks = append(phase.Tasks, model.Task{
				Name:        t.Name,
				Command:     t.Command,
				Timeout:     tTimeout,
				Criticality: criticality,
				Env:         mergeEnv(p.Env, t.Env),
			})
		}

		plan.Phases = append(plan.Phases, phase)
	}

	return plan, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, model.ErrNotValid)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %w", model.ErrNotValid)
	}
	return d, nil
}

func mergeEnv(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}

	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
