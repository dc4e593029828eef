package envup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apprun "github.com/slok/envup/internal/app/run"
	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/runner"
	"github.com/slok/envup/internal/storage"
	storageio "github.com/slok/envup/internal/storage/io"
	"github.com/slok/envup/internal/storage/memory"
	"github.com/slok/envup/internal/storage/sqlite"
)

const (
	defaultDataDir = ".envup"
	defaultDBFile  = "envup.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.envup/envup.db for run history storage.
type Config struct {
	// DBPath is the SQLite database path for run history.
	// Default: ~/.envup/envup.db.
	DBPath string

	// InMemory keeps run history in memory instead of SQLite.
	// Set this for testing without touching the filesystem.
	InMemory bool

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.DBPath == "" && !c.InMemory {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}

	return nil
}

// Client is the main SDK entry point for executing provisioning plans
// programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use, but only one plan should run at a time.
type Client struct {
	repo    storage.Repository
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client.
//
// Unless [Config].InMemory is set, the client is backed by a SQLite database
// and the caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := envup.New(ctx, envup.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.InMemory {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		return &Client{repo: repo, logger: cfg.Logger}, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return &Client{
		repo:    repo,
		logger:  cfg.Logger,
		closeFn: repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database
// connection. After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// LoadPlan loads and validates a provisioning plan from a YAML file.
//
// Returns [ErrNotValid] if the file does not parse into a valid plan.
func (c *Client) LoadPlan(ctx context.Context, path string) (Plan, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Plan{}, fmt.Errorf("could not resolve plan path: %w", err)
	}

	repo := storageio.NewPlanYAMLRepository(os.DirFS(filepath.Dir(absPath)))
	plan, err := repo.GetPlan(ctx, filepath.Base(absPath))
	if err != nil {
		return Plan{}, mapError(err)
	}

	return fromInternalPlan(plan), nil
}

// Run executes the plan and persists the run outcome in history.
//
// The run ends when every phase finished, the plan's global deadline expired,
// a required task failed (unless [RunOpts].ContinueOnError), or ctx was
// cancelled. The report is non-nil even on error so partial results can be
// inspected.
//
// Returns [ErrNotValid] for invalid plans, [ErrRequiredTask],
// [ErrRunTimeout] or [ErrRunCancelled] for aborted runs.
func (c *Client) Run(ctx context.Context, plan Plan, opts *RunOpts) (*Report, error) {
	ctrlCfg := runner.ControllerConfig{
		Sink:   toInternalSink(opts),
		Logger: c.logger,
	}
	if opts != nil {
		ctrlCfg.HeartbeatInterval = opts.HeartbeatInterval
		ctrlCfg.MaxParallel = opts.MaxParallel
		ctrlCfg.KeepGoing = opts.KeepGoing
		ctrlCfg.ContinueOnError = opts.ContinueOnError
	}

	ctrl, err := runner.NewController(ctrlCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create controller: %w", err)
	}

	svc, err := apprun.NewService(apprun.ServiceConfig{
		Runner:     ctrl,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx, apprun.Request{Plan: toInternalPlan(plan)})
	if err != nil {
		return fromInternalReport(report), mapError(err)
	}

	return fromInternalReport(report), nil
}

// GetRun returns a past run and its task records. An empty id returns the
// latest run.
//
// Returns [ErrNotFound] if the run does not exist (or no run exists yet).
func (c *Client) GetRun(ctx context.Context, id string) (*Run, []TaskRecord, error) {
	var run *Run
	if id == "" {
		r, err := c.repo.GetLatestRun(ctx)
		if err != nil {
			return nil, nil, mapError(err)
		}
		rr := fromInternalRun(*r)
		run = &rr
	} else {
		r, err := c.repo.GetRun(ctx, id)
		if err != nil {
			return nil, nil, mapError(err)
		}
		rr := fromInternalRun(*r)
		run = &rr
	}

	records, err := c.repo.ListTaskRecords(ctx, run.ID)
	if err != nil {
		return nil, nil, mapError(err)
	}

	return run, fromInternalTaskRecords(records), nil
}

// ListRuns returns every past run, newest first.
func (c *Client) ListRuns(ctx context.Context) ([]Run, error) {
	runs, err := c.repo.ListRuns(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return fromInternalRunList(runs), nil
}
