package printer_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/printer"
)

func TestJSONPrinterPrintRuns(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewJSONPrinter(&b)

	require.NoError(t, p.PrintRuns([]model.Run{testRun()}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "01K3QWERTYASDFGZXCVBNMLKJH", got[0]["id"])
	assert.Equal(t, "bootstrap", got[0]["plan_name"])
	assert.Equal(t, "completed", got[0]["status"])
}

func TestJSONPrinterPrintRunsEmpty(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewJSONPrinter(&b)

	require.NoError(t, p.PrintRuns(nil))

	// Empty list must render as [], not null.
	assert.JSONEq(t, `[]`, b.String())
}

func TestJSONPrinterPrintRunDetail(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewJSONPrinter(&b)

	tasks := []model.TaskRecord{
		{Phase: "setup", Sequence: 0, Name: "deps", Status: model.TaskStatusFailed, ExitCode: 2, Duration: 1500 * time.Millisecond, Error: "exit code 2"},
	}

	require.NoError(t, p.PrintRunDetail(testRun(), tasks))

	var got map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &got))
	assert.Equal(t, "01K3QWERTYASDFGZXCVBNMLKJH", got["id"])

	gotTasks, ok := got["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, gotTasks, 1)
	task := gotTasks[0].(map[string]any)
	assert.Equal(t, "deps", task["name"])
	assert.Equal(t, "failed", task["status"])
	assert.Equal(t, float64(2), task["exit_code"])
	assert.Equal(t, float64(1500), task["duration_ms"])
	assert.Equal(t, "exit code 2", task["error"])
}

func TestJSONPrinterPrintPlan(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewJSONPrinter(&b)

	plan := model.Plan{
		Name:    "bootstrap",
		Timeout: 30 * time.Minute,
		Phases: []model.Phase{
			{Name: "setup", Timeout: 10 * time.Minute, Tasks: []model.Task{
				{Name: "deps", Command: "npm ci", Timeout: 5 * time.Minute, Criticality: model.TaskCriticalityRequired},
			}},
		},
	}

	require.NoError(t, p.PrintPlan(plan))

	var got map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &got))
	assert.Equal(t, "bootstrap", got["name"])
	assert.Equal(t, "30m0s", got["timeout"])

	phases, ok := got["phases"].([]any)
	require.True(t, ok)
	require.Len(t, phases, 1)
	phase := phases[0].(map[string]any)
	assert.Equal(t, "setup", phase["name"])
	assert.Equal(t, []any{"deps"}, phase["tasks"])
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var b bytes.Buffer
	p := printer.NewJSONPrinter(&b)

	require.NoError(t, p.PrintMessage("plan is valid"))
	assert.JSONEq(t, `{"message": "plan is valid"}`, b.String())
}
