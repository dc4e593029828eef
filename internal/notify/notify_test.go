package notify_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/envup/internal/notify"
)

func TestWriterSink(t *testing.T) {
	tests := map[string]struct {
		phase   string
		message string
		level   notify.Level
		expLine string
	}{
		"an info message should be tagged INFO": {
			phase: "setup", message: "task started", level: notify.LevelInfo,
			expLine: "INFO  [setup] task started\n",
		},
		"a warn message should be tagged WARN": {
			phase: "setup", message: "task slow", level: notify.LevelWarn,
			expLine: "WARN  [setup] task slow\n",
		},
		"an error message should be tagged ERROR": {
			phase: "deps", message: "task failed", level: notify.LevelError,
			expLine: "ERROR [deps] task failed\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var b bytes.Buffer
			sink := notify.NewWriterSink(&b)

			sink.Report(test.phase, test.message, test.level)

			assert.Equal(t, test.expLine, b.String())
		})
	}
}

func TestWriterSinkConcurrent(t *testing.T) {
	assert := assert.New(t)

	var b bytes.Buffer
	sink := notify.NewWriterSink(&b)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Report("phase", "message", notify.LevelInfo)
		}()
	}
	wg.Wait()

	lines := bytes.Count(b.Bytes(), []byte("\n"))
	assert.Equal(50, lines)
}

func TestMultiSink(t *testing.T) {
	assert := assert.New(t)

	var got1, got2 []string
	s1 := notify.SinkFunc(func(phase, message string, level notify.Level) { got1 = append(got1, message) })
	s2 := notify.SinkFunc(func(phase, message string, level notify.Level) { got2 = append(got2, message) })

	multi := notify.NewMultiSink(s1, s2)
	multi.Report("setup", "hello", notify.LevelInfo)

	assert.Equal([]string{"hello"}, got1)
	assert.Equal([]string{"hello"}, got2)
}

func TestNoop(t *testing.T) {
	// Just must not panic.
	notify.Noop.Report("setup", "hello", notify.LevelInfo)
}
