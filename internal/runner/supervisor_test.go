package runner_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/notify"
	"github.com/slok/envup/internal/runner"
)

// recordSink captures progress messages for assertions.
type recordSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordSink) Report(phase, message string, level notify.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *recordSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.messages...)
}

func (s *recordSink) contains(substr string) bool {
	for _, m := range s.all() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestSupervisorExecute(t *testing.T) {
	tests := map[string]struct {
		task        model.Task
		expStatus   model.TaskStatus
		expExitCode int
		expOutput   string
	}{
		"a command exiting 0 should end succeeded": {
			task: model.Task{
				Name:        "ok",
				Command:     "echo done",
				Timeout:     5 * time.Second,
				Criticality: model.TaskCriticalityRequired,
			},
			expStatus:   model.TaskStatusSucceeded,
			expExitCode: 0,
			expOutput:   "done\n",
		},
		"a command exiting non-zero should end failed with the exit code": {
			task: model.Task{
				Name:        "broken",
				Command:     "exit 7",
				Timeout:     5 * time.Second,
				Criticality: model.TaskCriticalityRequired,
			},
			expStatus:   model.TaskStatusFailed,
			expExitCode: 7,
		},
		"a command exceeding its timeout should end timed out": {
			task: model.Task{
				Name:        "slow",
				Command:     "sleep 30",
				Timeout:     200 * time.Millisecond,
				Criticality: model.TaskCriticalityRequired,
			},
			expStatus:   model.TaskStatusTimedOut,
			expExitCode: -1,
		},
		"task env should reach the command": {
			task: model.Task{
				Name:        "env",
				Command:     "echo $FOO",
				Timeout:     5 * time.Second,
				Criticality: model.TaskCriticalityOptional,
				Env:         map[string]string{"FOO": "bar"},
			},
			expStatus:   model.TaskStatusSucceeded,
			expExitCode: 0,
			expOutput:   "bar\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			sup, err := runner.NewSupervisor(runner.SupervisorConfig{
				GracePeriod: 200 * time.Millisecond,
			})
			require.NoError(err)

			res := sup.Execute(context.Background(), "test-phase", test.task)

			assert.Equal(test.expStatus, res.Status)
			assert.Equal(test.expExitCode, res.ExitCode)
			assert.Equal(test.task.Name, res.Name)
			assert.Equal("test-phase", res.Phase)
			assert.Equal(test.task.Criticality, res.Criticality)
			assert.True(res.Status.Terminal())
			if test.expOutput != "" {
				assert.Equal(test.expOutput, string(res.Output))
			}
		})
	}
}

func TestSupervisorExecuteCancelled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sup, err := runner.NewSupervisor(runner.SupervisorConfig{
		GracePeriod: 200 * time.Millisecond,
	})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := sup.Execute(ctx, "test-phase", model.Task{
		Name:        "long",
		Command:     "sleep 30",
		Timeout:     time.Minute,
		Criticality: model.TaskCriticalityRequired,
	})

	assert.Equal(model.TaskStatusCancelled, res.Status)
	assert.Equal(-1, res.ExitCode)
	assert.Less(time.Since(start), 5*time.Second)
}

func TestSupervisorHeartbeats(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sink := &recordSink{}
	sup, err := runner.NewSupervisor(runner.SupervisorConfig{
		Sink:              sink,
		HeartbeatInterval: 50 * time.Millisecond,
		GracePeriod:       200 * time.Millisecond,
	})
	require.NoError(err)

	res := sup.Execute(context.Background(), "test-phase", model.Task{
		Name:        "slowish",
		Command:     "sleep 0.3",
		Timeout:     5 * time.Second,
		Criticality: model.TaskCriticalityRequired,
	})

	require.Equal(model.TaskStatusSucceeded, res.Status)
	assert.True(sink.contains("still running"), "expected at least one heartbeat, got: %v", sink.all())
}

func TestSupervisorRegistryTracksLiveProcess(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := runner.NewRegistry()
	sup, err := runner.NewSupervisor(runner.SupervisorConfig{
		Registry:    reg,
		GracePeriod: 200 * time.Millisecond,
	})
	require.NoError(err)

	resC := make(chan model.TaskResult, 1)
	go func() {
		resC <- sup.Execute(context.Background(), "test-phase", model.Task{
			Name:        "long",
			Command:     "sleep 30",
			Timeout:     time.Minute,
			Criticality: model.TaskCriticalityRequired,
		})
	}()

	// The handle shows up while the task runs and an external abort reaps it.
	require.Eventually(func() bool { return reg.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	reg.CancelAll()

	select {
	case res := <-resC:
		// A registry abort kills the process, the command ends with a non-zero code.
		assert.Equal(model.TaskStatusFailed, res.Status)
		assert.NotEqual(0, res.ExitCode)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish after registry abort")
	}

	assert.Equal(0, reg.Len())
}
