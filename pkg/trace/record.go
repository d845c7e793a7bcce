// Package trace implements the buffered trace shipping pipeline: producers
// submit TraceRecords, a BufferedTraceWriter filters and batches them, and a
// pluggable Sink delivers each batch to its backend on a fixed cadence.
package trace

import "time"

// Level is the severity of a trace record, ordered from least to most severe.
type Level int

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the canonical name used in log lines and SQL sink rows.
func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "Verbose"
	case LevelInfo:
		return "Info"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ExceptionKind distinguishes exception shapes that receive special
// innermost-cause handling from everything else.
type ExceptionKind int

const (
	// ExceptionGeneric carries a multi-line stack + message representation.
	ExceptionGeneric ExceptionKind = iota
	// ExceptionFunctionInvocation is a FunctionInvocationException: only the
	// innermost cause's message is surfaced.
	ExceptionFunctionInvocation
	// ExceptionAggregate is an AggregateException: only the innermost cause's
	// message is surfaced.
	ExceptionAggregate
)

// TraceException is the structured error attached to an Event, if any.
type TraceException struct {
	Kind    ExceptionKind
	Message string
	Stack   string
	// Cause is the next error in the chain; used to walk to the innermost
	// cause for FunctionInvocation/Aggregate exceptions.
	Cause *TraceException
}

// innermost walks the Cause chain and returns the deepest exception.
func (e *TraceException) innermost() *TraceException {
	cur := e
	for cur.Cause != nil {
		cur = cur.Cause
	}
	return cur
}

// lines renders the exception as the zero, one, or more lines that get
// appended to a trace in addition to the originating message line.
func (e *TraceException) lines() []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExceptionFunctionInvocation, ExceptionAggregate:
		inner := e.innermost()
		if inner.Message == "" {
			return nil
		}
		return []string{inner.Message}
	default:
		if e.Stack != "" {
			return []string{e.Message + "\n" + e.Stack}
		}
		return []string{e.Message}
	}
}

// Event is submitted by a producer to BufferedTraceWriter.trace.
type Event struct {
	Level      Level
	Message    string
	Exception  *TraceException
	Properties map[string]any
}

// isSystemTrace reports whether the event is tagged as host-internal
// diagnostics via properties["isSystemTrace"] = true.
func (e *Event) isSystemTrace() bool {
	if e.Properties == nil {
		return false
	}
	v, ok := e.Properties["isSystemTrace"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Record is an immutable trace line produced from an Event. Sinks consume
// Records; they are never mutated after creation.
type Record struct {
	Timestamp    time.Time
	Level        Level
	Message      string
	FunctionName string
}
