package trace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrInvalidArgument is returned by trace() when called with a nil event.
var ErrInvalidArgument = errors.New("trace: event is required")

const flushInterval = 1000 * time.Millisecond

// metricsRecorder is the narrow slice of pkg/metrics.TraceMetrics the writer
// needs, kept local so this package never imports pkg/metrics directly.
type metricsRecorder interface {
	ObserveFlush(durationSeconds float64, batchSize int)
	RecordDropped()
}

// BufferedTraceWriter accepts Events from any number of producers, filters
// them by level and system-trace policy, and flushes accumulated Records to
// a Sink on a fixed cadence.
type BufferedTraceWriter struct {
	level               Level
	systemTracesEnabled bool
	functionName        string
	sink                Sink
	metrics             metricsRecorder

	flushMu sync.Mutex // serializes flush() so no record is ever shipped twice
	bufMu   sync.Mutex // guards buf
	buf     []Record

	statsMu      sync.Mutex
	lastFlushAt  time.Time
	lastFlushErr error

	timer  *time.Timer
	stopCh chan struct{}
	wg     sync.WaitGroup

	disposeOnce sync.Once
}

// NewBufferedTraceWriter constructs a writer for functionName (used to stamp
// Records and, by FileSink, to route them to a per-function log file),
// keeping events at level or above, and forwarding batches to sink. Starts
// the internal 1000ms flush timer immediately.
func NewBufferedTraceWriter(functionName string, level Level, systemTracesEnabled bool, sink Sink) *BufferedTraceWriter {
	return newBufferedTraceWriter(functionName, level, systemTracesEnabled, sink, nil)
}

// NewBufferedTraceWriterWithMetrics is NewBufferedTraceWriter plus an
// optional metrics recorder; passing nil is equivalent to the metrics-free
// constructor.
func NewBufferedTraceWriterWithMetrics(functionName string, level Level, systemTracesEnabled bool, sink Sink, metrics metricsRecorder) *BufferedTraceWriter {
	return newBufferedTraceWriter(functionName, level, systemTracesEnabled, sink, metrics)
}

func newBufferedTraceWriter(functionName string, level Level, systemTracesEnabled bool, sink Sink, metrics metricsRecorder) *BufferedTraceWriter {
	w := &BufferedTraceWriter{
		level:               level,
		systemTracesEnabled: systemTracesEnabled,
		functionName:        functionName,
		sink:                sink,
		metrics:             metrics,
		stopCh:              make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Trace filters and appends the lines derived from event to the pending
// buffer. A system trace (properties["isSystemTrace"] = true) is discarded
// unless system traces are enabled, and an event below the writer's level is
// discarded; otherwise the trimmed message and each non-blank exception line
// become one Record apiece.
func (w *BufferedTraceWriter) Trace(event *Event) error {
	if event == nil {
		return ErrInvalidArgument
	}

	if !w.systemTracesEnabled && event.isSystemTrace() {
		w.recordDropped()
		return nil
	}
	if event.Level < w.level {
		w.recordDropped()
		return nil
	}

	now := time.Now().UTC()

	lines := make([]string, 0, 2)
	if msg := strings.TrimSpace(event.Message); msg != "" {
		lines = append(lines, msg)
	}
	for _, l := range event.Exception.lines() {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) == 0 {
		return nil
	}

	records := make([]Record, len(lines))
	for i, l := range lines {
		records[i] = Record{
			Timestamp:    now,
			Level:        event.Level,
			Message:      l,
			FunctionName: w.functionName,
		}
	}

	w.bufMu.Lock()
	w.buf = append(w.buf, records...)
	w.bufMu.Unlock()

	return nil
}

func (w *BufferedTraceWriter) recordDropped() {
	if w.metrics != nil {
		w.metrics.RecordDropped()
	}
}

// run drives the fixed 1000ms flush cadence until Dispose stops it.
func (w *BufferedTraceWriter) run() {
	defer w.wg.Done()

	w.timer = time.NewTimer(flushInterval)
	defer w.timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-w.timer.C:
			w.Flush(context.Background())
			w.timer.Reset(flushInterval)
		}
	}
}

// Flush swaps the current buffer for a fresh one and ships the snapshot to
// the sink. Serialized by flushMu so concurrent calls (the timer and an
// explicit caller, or Dispose racing the timer) never double-ship a record.
// A no-op if the buffer is empty.
func (w *BufferedTraceWriter) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.bufMu.Lock()
	if len(w.buf) == 0 {
		w.bufMu.Unlock()
		return nil
	}
	batch := w.buf
	w.buf = nil
	w.bufMu.Unlock()

	start := time.Now()
	err := w.sink.FlushBatch(ctx, batch)
	if w.metrics != nil {
		w.metrics.ObserveFlush(time.Since(start).Seconds(), len(batch))
	}

	w.statsMu.Lock()
	w.lastFlushAt = start
	w.lastFlushErr = err
	w.statsMu.Unlock()

	return err
}

// Stats is a read-only view of the writer's buffering state, intended for a
// status endpoint.
type Stats struct {
	BufferedRecords int
	LastFlushAt     time.Time
	LastFlushErr    error
}

// Stats returns the writer's current buffered-record count and the outcome
// of its most recent flush.
func (w *BufferedTraceWriter) Stats() Stats {
	w.bufMu.Lock()
	buffered := len(w.buf)
	w.bufMu.Unlock()

	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return Stats{
		BufferedRecords: buffered,
		LastFlushAt:     w.lastFlushAt,
		LastFlushErr:    w.lastFlushErr,
	}
}

// Dispose stops the flush timer and performs one final flush. Idempotent.
func (w *BufferedTraceWriter) Dispose() error {
	var err error
	w.disposeOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		err = w.Flush(context.Background())
	})
	return err
}
