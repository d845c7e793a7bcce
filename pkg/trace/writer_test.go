package trace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every flushed batch for assertions.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]Record
	err     error
}

func (s *recordingSink) FlushBatch(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]Record, len(records))
	copy(batch, records)
	s.batches = append(s.batches, batch)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) snapshot() [][]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Record, len(s.batches))
	copy(out, s.batches)
	return out
}

func TestTraceRejectsNilEvent(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, true, sink)
	defer w.Dispose()

	err := w.Trace(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTraceDiscardsSystemTraceWhenDisabled(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, false, sink)
	defer w.Dispose()

	require.NoError(t, w.Trace(&Event{
		Level:      LevelInfo,
		Message:    "internal heartbeat",
		Properties: map[string]any{"isSystemTrace": true},
	}))

	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestTraceDiscardsBelowMinimumLevel(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelWarning, true, sink)
	defer w.Dispose()

	require.NoError(t, w.Trace(&Event{Level: LevelInfo, Message: "below threshold"}))
	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestTraceAppendsMessageAndInnermostCauseForFunctionInvocation(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, true, sink)
	defer w.Dispose()

	err := w.Trace(&Event{
		Level:   LevelError,
		Message: "script failed",
		Exception: &TraceException{
			Kind:    ExceptionFunctionInvocation,
			Message: "outer wrapper",
			Cause: &TraceException{
				Kind:    ExceptionGeneric,
				Message: "division by zero",
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, "script failed", batches[0][0].Message)
	assert.Equal(t, "division by zero", batches[0][1].Message)
	assert.Equal(t, "fn", batches[0][0].FunctionName)
}

func TestFlushIsNoopOnEmptyBuffer(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, true, sink)
	defer w.Dispose()

	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestDisposeFlushesPendingRecordsAndIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, true, sink)

	require.NoError(t, w.Trace(&Event{Level: LevelInfo, Message: "final record"}))

	require.NoError(t, w.Dispose())
	require.NoError(t, w.Dispose())

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "final record", batches[0][0].Message)
}

func TestPeriodicFlushShipsBufferedRecords(t *testing.T) {
	sink := &recordingSink{}
	w := NewBufferedTraceWriter("fn", LevelVerbose, true, sink)
	defer w.Dispose()

	require.NoError(t, w.Trace(&Event{Level: LevelInfo, Message: "ticked"}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.snapshot()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotEmpty(t, sink.snapshot())
}
