package printer

import "github.com/slok/envup/internal/model"

// Printer knows how to print run information in different formats.
type Printer interface {
	PrintRuns(runs []model.Run) error
	PrintRunDetail(run model.Run, tasks []model.TaskRecord) error
	PrintPlan(plan model.Plan) error
	PrintMessage(msg string) error
}
