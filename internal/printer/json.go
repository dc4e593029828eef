package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/envup/internal/model"
)

// JSONPrinter prints run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runItem represents a run in the list output.
type runItem struct {
	ID         string     `json:"id"`
	PlanName   string     `json:"plan_name"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// taskItem represents a task record in the run detail output.
type taskItem struct {
	Phase      string `json:"phase"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// runDetailOutput represents the full run status output.
type runDetailOutput struct {
	runItem
	Tasks []taskItem `json:"tasks"`
}

// planOutput represents a plan summary output.
type planOutput struct {
	Name    string            `json:"name"`
	Timeout string            `json:"timeout"`
	Phases  []planPhaseOutput `json:"phases"`
}

type planPhaseOutput struct {
	Name    string   `json:"name"`
	Timeout string   `json:"timeout"`
	Tasks   []string `json:"tasks"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRuns prints runs in JSON format.
func (j *JSONPrinter) PrintRuns(runs []model.Run) error {
	items := make([]runItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, newRunItem(r))
	}
	return j.print(items)
}

// PrintRunDetail prints a run and its task records in JSON format.
func (j *JSONPrinter) PrintRunDetail(run model.Run, tasks []model.TaskRecord) error {
	out := runDetailOutput{
		runItem: newRunItem(run),
		Tasks:   make([]taskItem, 0, len(tasks)),
	}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, taskItem{
			Phase:      t.Phase,
			Name:       t.Name,
			Status:     string(t.Status),
			ExitCode:   t.ExitCode,
			DurationMS: t.Duration.Milliseconds(),
			Error:      t.Error,
		})
	}
	return j.print(out)
}

// PrintPlan prints a plan summary in JSON format.
func (j *JSONPrinter) PrintPlan(plan model.Plan) error {
	out := planOutput{
		Name:    plan.Name,
		Timeout: plan.Timeout.String(),
	}
	for _, ph := range plan.Phases {
		phOut := planPhaseOutput{
			Name:    ph.Name,
			Timeout: ph.Timeout.String(),
		}
		for _, t := range ph.Tasks {
			phOut.Tasks = append(phOut.Tasks, t.Name)
		}
		out.Phases = append(out.Phases, phOut)
	}
	return j.print(out)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.print(messageOutput{Message: msg})
}

func (j *JSONPrinter) print(v interface{}) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRunItem(r model.Run) runItem {
	return runItem{
		ID:         r.ID,
		PlanName:   r.PlanName,
		Status:     string(r.Status),
		Reason:     string(r.Reason),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
