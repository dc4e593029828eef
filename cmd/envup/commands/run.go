package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"

	apprun "github.com/slok/envup/internal/app/run"
	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/notify"
	"github.com/slok/envup/internal/runner"
	"github.com/slok/envup/internal/sizing"
	"github.com/slok/envup/internal/storage/io"
	"github.com/slok/envup/internal/storage/sqlite"
	"github.com/slok/envup/internal/utils/env"
)

const parallelAuto = "auto"

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	planPath          string
	parallel          string
	heartbeatInterval time.Duration
	gracePeriod       time.Duration
	timeout           time.Duration
	keepGoing         bool
	continueOnError   bool
	envSpecs          []string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Execute a provisioning plan.")
	c.Cmd.Flag("plan", "Path to the plan YAML file.").Short('f').Required().StringVar(&c.planPath)
	c.Cmd.Flag("parallel", "Max tasks running at once per phase (0 = unlimited, \"auto\" = size from host resources).").Default("0").StringVar(&c.parallel)
	c.Cmd.Flag("heartbeat-interval", "Cadence of still-running progress messages.").Default("10s").DurationVar(&c.heartbeatInterval)
	c.Cmd.Flag("grace-period", "Wait between graceful termination and force kill on cancellation.").Default("2s").DurationVar(&c.gracePeriod)
	c.Cmd.Flag("timeout", "Override the plan's global timeout.").DurationVar(&c.timeout)
	c.Cmd.Flag("keep-going", "Don't cancel running siblings when a required task fails.").BoolVar(&c.keepGoing)
	c.Cmd.Flag("continue-on-error", "Keep executing later phases after a required task failure.").BoolVar(&c.continueOnError)
	c.Cmd.Flag("env", "Extra environment variables for every task (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&c.envSpecs)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Load the plan.
	absPath, err := filepath.Abs(c.planPath)
	if err != nil {
		return fmt.Errorf("invalid plan path: %w", err)
	}
	planRepo := io.NewPlanYAMLRepository(os.DirFS(filepath.Dir(absPath)))
	plan, err := planRepo.GetPlan(ctx, filepath.Base(absPath))
	if err != nil {
		return fmt.Errorf("could not load plan: %w", err)
	}

	// Apply command line overrides.
	if c.timeout > 0 {
		plan.Timeout = c.timeout
	}
	extraEnv, err := env.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("invalid --env value: %w", err)
	}
	if len(extraEnv) > 0 {
		for i := range plan.Phases {
			for j := range plan.Phases[i].Tasks {
				plan.Phases[i].Tasks[j].Env = env.MergeMaps(plan.Phases[i].Tasks[j].Env, extraEnv)
			}
		}
	}

	maxParallel, err := c.parseParallel(logger)
	if err != nil {
		return err
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Progress goes to stdout so it stays visible with logging disabled.
	sink := notify.NewWriterSink(c.rootCmd.Stdout)

	ctrl, err := runner.NewController(runner.ControllerConfig{
		Sink:              sink,
		Logger:            logger,
		HeartbeatInterval: c.heartbeatInterval,
		GracePeriod:       c.gracePeriod,
		MaxParallel:       maxParallel,
		KeepGoing:         c.keepGoing,
		ContinueOnError:   c.continueOnError,
	})
	if err != nil {
		return fmt.Errorf("could not create run controller: %w", err)
	}

	svc, err := apprun.NewService(apprun.ServiceConfig{
		Runner:     ctrl,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create run service: %w", err)
	}

	_, err = svc.Run(ctx, apprun.Request{Plan: plan})
	if err != nil {
		return err
	}

	return nil
}

func (c RunCommand) parseParallel(logger log.Logger) (int, error) {
	if c.parallel == parallelAuto {
		cpus, memMB, load1 := sizing.Detect()
		workers := sizing.Workers(cpus, memMB, load1)
		logger.Debugf("auto parallelism: %d workers (cpus=%d mem=%dMB load1=%.2f)", workers, cpus, memMB, load1)
		return workers, nil
	}

	n, err := strconv.Atoi(c.parallel)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid --parallel value %q (expected a non-negative number or %q)", c.parallel, parallelAuto)
	}
	return n, nil
}
