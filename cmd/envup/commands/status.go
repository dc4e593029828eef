package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appstatus "github.com/slok/envup/internal/app/status"
	"github.com/slok/envup/internal/storage/sqlite"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID  string
	output string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Show the detailed status of a run (latest by default).")
	c.Cmd.Arg("run-id", "Run ID to inspect.").StringVar(&c.runID)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(OutputFormatTable).EnumVar(&c.output, OutputFormatTable, OutputFormatJSON)

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	svc, err := appstatus.NewService(appstatus.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create status service: %w", err)
	}

	status, err := svc.Run(ctx, appstatus.Request{RunID: c.runID})
	if err != nil {
		return fmt.Errorf("could not get run status: %w", err)
	}

	p := newPrinter(c.output, c.rootCmd.Stdout)
	return p.PrintRunDetail(status.Run, status.Tasks)
}
