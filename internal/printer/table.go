package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/envup/internal/model"
)

// TablePrinter prints run information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRuns prints runs in a table format.
func (t *TablePrinter) PrintRuns(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tPLAN\tSTATUS\tREASON\tSTARTED\tDURATION")

	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.PlanName, r.Status, r.Reason, TimeAgo(r.StartedAt), runDuration(r))
	}

	return nil
}

// PrintRunDetail prints a run header followed by its task table.
func (t *TablePrinter) PrintRunDetail(run model.Run, tasks []model.TaskRecord) error {
	fmt.Fprintf(t.writer, "Run:      %s\n", run.ID)
	fmt.Fprintf(t.writer, "Plan:     %s\n", run.PlanName)
	fmt.Fprintf(t.writer, "Status:   %s\n", run.Status)
	if run.Reason != model.AbortReasonNone {
		fmt.Fprintf(t.writer, "Reason:   %s\n", run.Reason)
	}
	fmt.Fprintf(t.writer, "Started:  %s\n", FormatTimestamp(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished: %s\n", FormatTimestamp(*run.FinishedAt))
	}

	if len(tasks) == 0 {
		return nil
	}
	fmt.Fprintln(t.writer)

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "PHASE\tTASK\tSTATUS\tEXIT\tDURATION\tERROR")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			task.Phase, task.Name, task.Status, task.ExitCode, FormatDuration(task.Duration), task.Error)
	}

	return nil
}

// PrintPlan prints a plan summary.
func (t *TablePrinter) PrintPlan(plan model.Plan) error {
	fmt.Fprintf(t.writer, "Plan:    %s\n", plan.Name)
	fmt.Fprintf(t.writer, "Timeout: %s\n", plan.Timeout)
	if len(plan.Background) > 0 {
		fmt.Fprintf(t.writer, "Background tasks: %d\n", len(plan.Background))
	}
	fmt.Fprintln(t.writer)

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "PHASE\tTIMEOUT\tTASK\tCRITICALITY\tTASK TIMEOUT")
	for _, ph := range plan.Phases {
		for _, task := range ph.Tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				ph.Name, ph.Timeout, task.Name, task.Criticality, task.Timeout)
		}
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func runDuration(r model.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return FormatDuration(r.FinishedAt.Sub(r.StartedAt))
}
