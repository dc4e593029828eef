package runner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/runner"
)

func TestNewProcess(t *testing.T) {
	tests := map[string]struct {
		config runner.ProcessConfig
		expErr bool
	}{
		"valid config should create process": {
			config: runner.ProcessConfig{Command: "true"},
			expErr: false,
		},
		"missing command should fail": {
			config: runner.ProcessConfig{},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			proc, err := runner.NewProcess(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(proc)
			} else {
				require.NoError(err)
				require.NotNil(proc)
			}
		})
	}
}

func TestProcessRun(t *testing.T) {
	tests := map[string]struct {
		config      runner.ProcessConfig
		expExitCode int
		expOutput   string
	}{
		"a successful command should return exit code 0 and its output": {
			config:      runner.ProcessConfig{Command: "echo hello"},
			expExitCode: 0,
			expOutput:   "hello\n",
		},
		"a failing command should return its exit code, not an error": {
			config:      runner.ProcessConfig{Command: "exit 3"},
			expExitCode: 3,
		},
		"stdout and stderr should land in the same combined output": {
			config:      runner.ProcessConfig{Command: "echo out; echo err >&2"},
			expExitCode: 0,
			expOutput:   "out\nerr\n",
		},
		"environment variables should reach the command": {
			config:      runner.ProcessConfig{Command: "echo $GREETING", Env: []string{"GREETING=hola"}},
			expExitCode: 0,
			expOutput:   "hola\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			proc, err := runner.NewProcess(test.config)
			require.NoError(err)

			result, err := proc.Run()
			require.NoError(err)

			assert.Equal(test.expExitCode, result.ExitCode)
			if test.expOutput != "" {
				assert.Equal(test.expOutput, string(result.Output))
			}
		})
	}
}

func TestProcessRunTwiceFails(t *testing.T) {
	require := require.New(t)

	proc, err := runner.NewProcess(runner.ProcessConfig{Command: "true"})
	require.NoError(err)

	_, err = proc.Run()
	require.NoError(err)

	_, err = proc.Run()
	require.Error(err)
}

func TestProcessCancel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	proc, err := runner.NewProcess(runner.ProcessConfig{
		Command:     "sleep 30",
		GracePeriod: 500 * time.Millisecond,
	})
	require.NoError(err)

	resultC := make(chan error, 1)
	go func() {
		_, err := proc.Run()
		resultC <- err
	}()

	// Give the command time to start before cancelling.
	time.Sleep(100 * time.Millisecond)
	proc.Cancel()

	select {
	case err := <-resultC:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("process did not stop after cancellation")
	}
}

func TestProcessCancelBeforeStart(t *testing.T) {
	require := require.New(t)

	proc, err := runner.NewProcess(runner.ProcessConfig{Command: "true"})
	require.NoError(err)

	proc.Cancel()

	_, err = proc.Run()
	require.Error(err)
}

func TestProcessCancelIdempotent(t *testing.T) {
	require := require.New(t)

	proc, err := runner.NewProcess(runner.ProcessConfig{Command: "true"})
	require.NoError(err)

	_, err = proc.Run()
	require.NoError(err)

	// Cancelling a finished process must be a no-op, repeatedly.
	proc.Cancel()
	proc.Cancel()
}
