package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/envup/internal/storage/io"
)

type ValidateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	planPath string
	output   string
}

// NewValidateCommand returns the validate command.
func NewValidateCommand(rootCmd *RootCommand, app *kingpin.Application) *ValidateCommand {
	c := &ValidateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("validate", "Validate a provisioning plan and print its summary.")
	c.Cmd.Flag("plan", "Path to the plan YAML file.").Short('f').Required().StringVar(&c.planPath)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(OutputFormatTable).EnumVar(&c.output, OutputFormatTable, OutputFormatJSON)

	return c
}

func (c ValidateCommand) Name() string { return c.Cmd.FullCommand() }

func (c ValidateCommand) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(c.planPath)
	if err != nil {
		return fmt.Errorf("invalid plan path: %w", err)
	}

	planRepo := io.NewPlanYAMLRepository(os.DirFS(filepath.Dir(absPath)))
	plan, err := planRepo.GetPlan(ctx, filepath.Base(absPath))
	if err != nil {
		return fmt.Errorf("could not load plan: %w", err)
	}

	p := newPrinter(c.output, c.rootCmd.Stdout)
	return p.PrintPlan(plan)
}
