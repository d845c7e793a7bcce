package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostlease/hostlease/pkg/trace"
)

func TestNewFileLoggingModeAlwaysBuildsWriter(t *testing.T) {
	w, err := New(context.Background(), "fn", Config{
		Level:           trace.LevelInfo,
		FileLoggingMode: FileLoggingAlways,
		RootLogPath:     t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Dispose())
}

func TestNewFileLoggingModeNeverBuildsNullSinkWriter(t *testing.T) {
	w, err := New(context.Background(), "fn", Config{
		Level:           trace.LevelInfo,
		FileLoggingMode: FileLoggingNever,
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Dispose())
}
