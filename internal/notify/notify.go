// Package notify is the progress reporting collaborator of the runner.
// The runner only needs Sink.Report; how messages are rendered (logs, a
// status stream, both) is up to the selected implementation.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/slok/envup/internal/log"
)

// Level is the severity of a progress message.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Sink receives progress messages from the runner.
// Implementations must be safe to call from multiple goroutines.
type Sink interface {
	Report(phase, message string, level Level)
}

// SinkFunc is a convenience adapter to allow ordinary functions as Sinks.
type SinkFunc func(phase, message string, level Level)

func (f SinkFunc) Report(phase, message string, level Level) { f(phase, message, level) }

// Noop is a sink that discards every message.
var Noop Sink = SinkFunc(func(_, _ string, _ Level) {})

// NewLoggerSink returns a sink that forwards messages to a logger with the
// phase as a structured field.
func NewLoggerSink(logger log.Logger) Sink {
	return SinkFunc(func(phase, message string, level Level) {
		l := logger.WithValues(log.Kv{"phase": phase})
		switch level {
		case LevelWarn:
			l.Warningf(message)
		case LevelError:
			l.Errorf(message)
		default:
			l.Infof(message)
		}
	})
}

// NewWriterSink returns a sink that writes plain text lines to a writer.
// Writes are serialized so concurrent task completions don't interleave.
func NewWriterSink(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(phase, message string, level Level) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%-5s [%s] %s\n", levelTag(level), phase, message)
	})
}

// NewMultiSink returns a sink that fans out every message to all sinks in order.
func NewMultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(phase, message string, level Level) {
		for _, s := range sinks {
			s.Report(phase, message, level)
		}
	})
}

func levelTag(l Level) string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
