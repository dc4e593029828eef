package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/slok/envup/internal/model"
)

const defaultGracePeriod = 2 * time.Second

// Process executes a single external command through the system shell and
// captures its combined output. It supports hard cancellation: Cancel sends
// SIGTERM to the command's process group, waits a bounded grace period and
// sends SIGKILL if the group is still alive.
//
// A Process runs exactly one command and it is not reusable. Run and Cancel
// are safe to call from different goroutines.
type Process struct {
	command string
	env     []string
	grace   time.Duration

	mu        sync.Mutex
	cmd       *exec.Cmd
	started   bool
	finished  bool
	cancelled bool
	done      chan struct{}
}

// ProcessConfig is the configuration for a Process.
type ProcessConfig struct {
	// Command is the shell command to execute (run with `/bin/sh -c`).
	Command string
	// Env are extra environment variables in KEY=VALUE form, appended to the
	// current process environment.
	Env []string
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	GracePeriod time.Duration
}

func (c *ProcessConfig) defaults() error {
	if c.Command == "" {
		return fmt.Errorf("command is required")
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	return nil
}

// NewProcess creates a new process for a single command execution.
func NewProcess(cfg ProcessConfig) (*Process, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Process{
		command: cfg.Command,
		env:     cfg.Env,
		grace:   cfg.GracePeriod,
		done:    make(chan struct{}),
	}, nil
}

// Run executes the command and blocks until it exits. A non-zero exit code is
// part of the result, not an error; an error means the command could not be
// executed at all. Run must be called at most once.
func (p *Process) Run() (*model.ExecResult, error) {
	var output bytes.Buffer

	cmd := exec.Command("/bin/sh", "-c", p.command)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}
	// Own process group so cancellation reaches any children the command spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil, fmt.Errorf("process already started")
	}
	if p.cancelled {
		p.mu.Unlock()
		return nil, fmt.Errorf("process cancelled before start")
	}
	if err := cmd.Start(); err != nil {
		p.finished = true
		close(p.done)
		p.mu.Unlock()
		return nil, fmt.Errorf("could not start command: %w", err)
	}
	p.cmd = cmd
	p.started = true
	p.mu.Unlock()

	err := cmd.Wait()

	p.mu.Lock()
	p.finished = true
	close(p.done)
	p.mu.Unlock()

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("could not wait for command: %w", err)
		}
	}

	return &model.ExecResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   output.Bytes(),
	}, nil
}

// Cancel requests termination of the running process group and returns once
// the process has exited or the grace period elapsed (after sending SIGKILL).
// Cancelling a finished or never-started process is a no-op, and calling
// Cancel multiple times is safe.
func (p *Process) Cancel() {
	p.mu.Lock()
	if p.finished || p.cancelled {
		p.mu.Unlock()
		return
	}
	p.cancelled = true
	if !p.started {
		p.mu.Unlock()
		return
	}
	pid := p.cmd.Process.Pid
	p.mu.Unlock()

	// Graceful first. ESRCH means the group is already gone, nothing to do then.
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	select {
	case <-p.done:
		return
	case <-time.After(p.grace):
	}

	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
