package commands

import (
	"github.com/hostlease/hostlease/pkg/lease"
	"github.com/hostlease/hostlease/pkg/trace"
)

// leaseTraceAdapter satisfies lease.TraceWriter by translating the
// manager's narrow (level, message) calls into trace.Events for a
// BufferedTraceWriter. The two packages define distinct Level types (see
// pkg/lease/trace.go) precisely so neither imports the other; this adapter
// is the one place that knows both.
type leaseTraceAdapter struct {
	writer *trace.BufferedTraceWriter
}

func (a leaseTraceAdapter) Trace(level lease.Level, message string) {
	_ = a.writer.Trace(&trace.Event{
		Level:   traceLevelFor(level),
		Message: message,
		Properties: map[string]any{
			"isSystemTrace": true,
		},
	})
}

func traceLevelFor(level lease.Level) trace.Level {
	switch level {
	case lease.LevelVerbose:
		return trace.LevelVerbose
	case lease.LevelWarning:
		return trace.LevelWarning
	case lease.LevelError:
		return trace.LevelError
	default:
		return trace.LevelInfo
	}
}
