package filesink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostlease/hostlease/pkg/trace"
)

func TestNewCreatesPerFunctionDirectory(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "lease.manager", trace.LevelVerbose)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(filepath.Join(root, "Function", "lease.manager"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFlushBatchFiltersBelowMinimumLevel(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "fn", trace.LevelWarning)
	require.NoError(t, err)
	defer s.Close()

	now := time.Now().UTC()
	require.NoError(t, s.FlushBatch(context.Background(), []trace.Record{
		{Timestamp: now, Level: trace.LevelInfo, Message: "filtered out"},
		{Timestamp: now, Level: trace.LevelError, Message: "kept"},
	}))

	path := filepath.Join(root, "Function", "fn", now.Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "filtered out")
}

func TestPruneLockedRetainsOnlyFourteenFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Function", "fn")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		day := base.AddDate(0, 0, i).Format("2006-01-02")
		require.NoError(t, os.WriteFile(filepath.Join(dir, day+".log"), []byte("x"), 0o644))
	}

	s, err := New(root, "fn", trace.LevelVerbose)
	require.NoError(t, err)
	defer s.Close()

	s.mu.Lock()
	s.pruneLocked()
	s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, retainedFiles)
}
