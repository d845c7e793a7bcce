// Package filesink implements a trace.Sink that appends records to a
// per-function log file, rotating it daily at UTC midnight and retaining a
// bounded number of rotated files.
package filesink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hostlease/hostlease/pkg/trace"
)

// retainedFiles is how many rotated log files are kept per function before
// the oldest is deleted.
const retainedFiles = 14

// Sink appends trace.Records to {rootLogPath}/Function/{functionName}/
// <date>.log, filtered to records at or above a minimum level captured at
// construction.
type Sink struct {
	dir   string
	level trace.Level

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	current string // date stamp ("2006-01-02") of the currently open file
}

// New ensures {rootLogPath}/Function/{functionName} exists and returns a
// Sink that keeps records at level or above.
func New(rootLogPath, functionName string, level trace.Level) (*Sink, error) {
	dir := filepath.Join(rootLogPath, "Function", functionName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesink: mkdir: %w", err)
	}
	return &Sink{dir: dir, level: level}, nil
}

// FlushBatch appends the records at or above the sink's minimum level,
// rotating to a new daily file and pruning old ones as needed.
func (s *Sink) FlushBatch(_ context.Context, records []trace.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.Level < s.level {
			continue
		}
		if err := s.ensureFileForLocked(r.Timestamp); err != nil {
			return err
		}
		line := fmt.Sprintf("%s\t%s\t%s\n", r.Timestamp.Format(time.RFC3339), r.Level, r.Message)
		if _, err := s.writer.WriteString(line); err != nil {
			return fmt.Errorf("filesink: write: %w", err)
		}
	}

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return fmt.Errorf("filesink: flush: %w", err)
		}
	}
	return nil
}

// ensureFileForLocked rotates to the file for ts's UTC date if necessary.
// Caller must hold s.mu.
func (s *Sink) ensureFileForLocked(ts time.Time) error {
	stamp := ts.UTC().Format("2006-01-02")
	if stamp == s.current && s.file != nil {
		return nil
	}

	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		_ = s.file.Close()
	}

	path := filepath.Join(s.dir, stamp+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filesink: open: %w", err)
	}

	s.file = f
	s.writer = bufio.NewWriter(f)
	s.current = stamp

	s.pruneLocked()
	return nil
}

// pruneLocked deletes the oldest rotated files beyond retainedFiles.
// Caller must hold s.mu.
func (s *Sink) pruneLocked() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".log" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // "YYYY-MM-DD.log" sorts chronologically

	if len(names) <= retainedFiles {
		return
	}
	for _, name := range names[:len(names)-retainedFiles] {
		_ = os.Remove(filepath.Join(s.dir, name))
	}
}

// Close flushes and closes the currently open file, if any. Idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		_ = s.file.Close()
		s.file = nil
		return fmt.Errorf("filesink: flush: %w", err)
	}
	err := s.file.Close()
	s.file = nil
	return err
}
