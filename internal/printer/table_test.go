package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/printer"
)

func testRun() model.Run {
	startedAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	finishedAt := startedAt.Add(90 * time.Second)
	return model.Run{
		ID:         "01K3QWERTYASDFGZXCVBNMLKJH",
		PlanName:   "bootstrap",
		Status:     model.RunStatusCompleted,
		CreatedAt:  startedAt,
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
	}
}

func TestTablePrinterPrintRuns(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	require.NoError(t, p.PrintRuns([]model.Run{testRun()}))

	out := b.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "PLAN")
	assert.Contains(t, out, "01K3QWERTYASDFGZXCVBNMLKJH")
	assert.Contains(t, out, "bootstrap")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1m30s")
}

func TestTablePrinterPrintRunsEmpty(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	require.NoError(t, p.PrintRuns(nil))
	assert.Empty(t, b.String())
}

func TestTablePrinterPrintRunDetail(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	run := testRun()
	run.Status = model.RunStatusAborted
	run.Reason = model.AbortReasonRequiredTask
	tasks := []model.TaskRecord{
		{Phase: "setup", Sequence: 0, Name: "deps", Status: model.TaskStatusSucceeded, Duration: 2 * time.Second},
		{Phase: "setup", Sequence: 1, Name: "build", Status: model.TaskStatusFailed, ExitCode: 2, Duration: 5 * time.Second, Error: "exit code 2"},
	}

	require.NoError(t, p.PrintRunDetail(run, tasks))

	out := b.String()
	assert.Contains(t, out, "Run:      01K3QWERTYASDFGZXCVBNMLKJH")
	assert.Contains(t, out, "Status:   aborted")
	assert.Contains(t, out, "Reason:   required-task")
	assert.Contains(t, out, "Started:  2026-08-30 10:00:00 UTC")
	assert.Contains(t, out, "PHASE")
	assert.Contains(t, out, "deps")
	assert.Contains(t, out, "exit code 2")
}

func TestTablePrinterPrintRunDetailNoReason(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	require.NoError(t, p.PrintRunDetail(testRun(), nil))

	out := b.String()
	assert.NotContains(t, out, "Reason:")
	assert.NotContains(t, out, "PHASE")
}

func TestTablePrinterPrintPlan(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	plan := model.Plan{
		Name:    "bootstrap",
		Timeout: 30 * time.Minute,
		Background: []model.BackgroundTask{
			{Name: "docker", Command: "dockerd"},
		},
		Phases: []model.Phase{
			{Name: "setup", Timeout: 10 * time.Minute, Tasks: []model.Task{
				{Name: "deps", Command: "npm ci", Timeout: 5 * time.Minute, Criticality: model.TaskCriticalityRequired},
				{Name: "warm", Command: "make warm", Timeout: 5 * time.Minute, Criticality: model.TaskCriticalityOptional},
			}},
		},
	}

	require.NoError(t, p.PrintPlan(plan))

	out := b.String()
	assert.Contains(t, out, "Plan:    bootstrap")
	assert.Contains(t, out, "Timeout: 30m0s")
	assert.Contains(t, out, "Background tasks: 1")
	assert.Contains(t, out, "required")
	assert.Contains(t, out, "optional")
	assert.Equal(t, 2, strings.Count(out, "setup"))
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewTablePrinter(&b)

	require.NoError(t, p.PrintMessage("plan is valid"))
	assert.Equal(t, "plan is valid\n", b.String())
}
