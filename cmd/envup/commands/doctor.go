package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/sizing"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the environment.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	out := c.rootCmd.Stdout

	results := []model.CheckResult{
		c.checkShell(),
		c.checkHome(),
		c.checkDBDir(),
		c.checkResources(),
	}

	fmt.Fprintln(out, "Checking environment...")
	for _, r := range results {
		fmt.Fprintf(out, "  %s %-18s %s\n", statusIcon(r.Status), r.ID, r.Message)
	}

	_, warnings, errors := model.CountByStatus(results)

	fmt.Fprintln(out)
	if errors == 0 && warnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if errors > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", errors))
		}
		if warnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", warnings))
		}
		fmt.Fprintln(out, strings.Join(summary, ", "))
	}

	if model.HasErrors(results) {
		return fmt.Errorf("preflight checks failed with %d error(s)", errors)
	}

	return nil
}

func (c DoctorCommand) checkShell() model.CheckResult {
	path, err := exec.LookPath("sh")
	if err != nil {
		return model.CheckResult{ID: "shell_available", Status: model.CheckStatusError, Message: "sh not found in PATH"}
	}
	return model.CheckResult{ID: "shell_available", Status: model.CheckStatusOK, Message: path}
}

func (c DoctorCommand) checkHome() model.CheckResult {
	home := homedir.HomeDir()
	if home == "" {
		return model.CheckResult{ID: "home_dir", Status: model.CheckStatusWarning, Message: "home directory could not be resolved"}
	}
	return model.CheckResult{ID: "home_dir", Status: model.CheckStatusOK, Message: home}
}

func (c DoctorCommand) checkDBDir() model.CheckResult {
	dir := filepath.Dir(c.rootCmd.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return model.CheckResult{ID: "db_dir", Status: model.CheckStatusError, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}

	probe, err := os.CreateTemp(dir, ".envup-doctor-*")
	if err != nil {
		return model.CheckResult{ID: "db_dir", Status: model.CheckStatusError, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	probe.Close()
	os.Remove(probe.Name())

	return model.CheckResult{ID: "db_dir", Status: model.CheckStatusOK, Message: dir}
}

func (c DoctorCommand) checkResources() model.CheckResult {
	cpus, memMB, load1 := sizing.Detect()
	workers := sizing.Workers(cpus, memMB, load1)

	msg := fmt.Sprintf("%d CPUs, %d MB memory, load1 %.2f (auto parallelism: %d)", cpus, memMB, load1, workers)
	if workers <= 1 {
		return model.CheckResult{ID: "resources", Status: model.CheckStatusWarning, Message: msg}
	}
	return model.CheckResult{ID: "resources", Status: model.CheckStatusOK, Message: msg}
}

func statusIcon(s model.CheckStatus) string {
	switch s {
	case model.CheckStatusOK:
		return "✓"
	case model.CheckStatusWarning:
		return "!"
	default:
		return "✗"
	}
}
