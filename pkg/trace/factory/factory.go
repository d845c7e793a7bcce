// Package factory builds a trace.Writer for a given function from the
// running host's trace configuration, choosing a concrete sink the way
// spec.md §4.3 describes.
package factory

import (
	"context"
	"fmt"

	"github.com/hostlease/hostlease/pkg/trace"
	"github.com/hostlease/hostlease/pkg/trace/filesink"
	"github.com/hostlease/hostlease/pkg/trace/sqlsink"
)

// FileLoggingMode controls whether a FileSink participates when the host is
// not running standalone.
type FileLoggingMode int

const (
	FileLoggingAlways FileLoggingMode = iota
	FileLoggingDebugOnly
	FileLoggingNever
)

// metricsRecorder mirrors trace's own narrow metrics interface so this
// package can forward a *metrics.TraceMetrics without importing pkg/metrics.
type metricsRecorder interface {
	ObserveFlush(durationSeconds float64, batchSize int)
	RecordDropped()
}

// Config is the subset of trace configuration the factory needs.
type Config struct {
	Level               trace.Level
	SystemTracesEnabled bool
	Standalone          bool
	FileLoggingMode     FileLoggingMode
	RootLogPath         string
	SQLDSN              string
	ServerName          string
	AppName             string
	// Metrics, if non-nil, receives flush duration/batch-size observations
	// and drop counts from the constructed writer.
	Metrics metricsRecorder
}

// New builds a BufferedTraceWriter for functionName:
//   - standalone: a CompositeSink fanning out to SqlSink and FileSink.
//   - otherwise, if FileLoggingMode != Never: a FileSink alone.
//   - otherwise: a NullSink.
//
// Any component already constructed before a later failure is disposed
// before the error is returned.
func New(ctx context.Context, functionName string, cfg Config) (*trace.BufferedTraceWriter, error) {
	var constructed []trace.Sink
	disposeAll := func() {
		for _, s := range constructed {
			_ = s.Close()
		}
	}

	var sink trace.Sink

	switch {
	case cfg.Standalone:
		sql, err := sqlsink.New(ctx, cfg.SQLDSN, cfg.ServerName, cfg.AppName)
		if err != nil {
			disposeAll()
			return nil, fmt.Errorf("factory: sql sink: %w", err)
		}
		constructed = append(constructed, sql)

		file, err := filesink.New(cfg.RootLogPath, functionName, cfg.Level)
		if err != nil {
			disposeAll()
			return nil, fmt.Errorf("factory: file sink: %w", err)
		}
		constructed = append(constructed, file)

		sink = trace.NewCompositeSink(sql, file)

	case cfg.FileLoggingMode != FileLoggingNever:
		file, err := filesink.New(cfg.RootLogPath, functionName, cfg.Level)
		if err != nil {
			disposeAll()
			return nil, fmt.Errorf("factory: file sink: %w", err)
		}
		constructed = append(constructed, file)
		sink = file

	default:
		sink = trace.NewNullSink()
	}

	if cfg.Metrics != nil {
		return trace.NewBufferedTraceWriterWithMetrics(functionName, cfg.Level, cfg.SystemTracesEnabled, sink, cfg.Metrics), nil
	}
	return trace.NewBufferedTraceWriter(functionName, cfg.Level, cfg.SystemTracesEnabled, sink), nil
}
