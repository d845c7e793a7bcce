package lease

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scripted Provider: each call pops the next result from
// the corresponding queue.
type fakeProvider struct {
	mu sync.Mutex

	acquireResults []acquireResult
	renewErrs      []error
	releases       []Definition
}

type acquireResult struct {
	leaseID string
	err     error
}

func (f *fakeProvider) Acquire(_ context.Context, _ Definition) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.acquireResults) == 0 {
		return "", NewError(ErrOther, assertNever{})
	}
	r := f.acquireResults[0]
	f.acquireResults = f.acquireResults[1:]
	return r.leaseID, r.err
}

func (f *fakeProvider) Renew(_ context.Context, _ Definition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.renewErrs) == 0 {
		return nil
	}
	err := f.renewErrs[0]
	f.renewErrs = f.renewErrs[1:]
	return err
}

func (f *fakeProvider) Release(_ context.Context, def Definition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, def)
	return nil
}

type assertNever struct{}

func (assertNever) Error() string { return "fakeProvider ran out of scripted results" }

// recordingTraceWriter captures every Trace call for assertions.
type recordingTraceWriter struct {
	mu      sync.Mutex
	entries []traceEntry
}

type traceEntry struct {
	level   Level
	message string
}

func (r *recordingTraceWriter) Trace(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, traceEntry{level, message})
}

func (r *recordingTraceWriter) snapshot() []traceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]traceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *recordingTraceWriter) countLevel(l Level) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.level == l {
			n++
		}
	}
	return n
}

func baseConfig(tw TraceWriter) Config {
	return Config{
		AccountName:  "acct",
		HostID:       "host-1",
		InstanceID:   "instance-1",
		LeaseTimeout: 15 * time.Second,
		TraceWriter:  tw,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestNewRejectsOutOfRangeTimeout(t *testing.T) {
	_, err := New(&fakeProvider{}, Config{
		AccountName:  "a",
		HostID:       "h",
		InstanceID:   "i",
		LeaseTimeout: 5 * time.Second,
	})
	require.Error(t, err)
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrInvalidArgument, le.Kind)

	_, err = New(&fakeProvider{}, Config{
		AccountName:  "a",
		HostID:       "h",
		InstanceID:   "i",
		LeaseTimeout: 90 * time.Second,
	})
	require.Error(t, err)
}

// Scenario 1: Acquire-on-start.
func TestAcquireOnStart(t *testing.T) {
	tw := &recordingTraceWriter{}
	provider := &fakeProvider{acquireResults: []acquireResult{{leaseID: "lease-A"}}}

	var changes int32
	var mu sync.Mutex

	m, err := New(provider, baseConfig(tw))
	require.NoError(t, err)
	defer m.Dispose()

	m.OnLeaseChanged(func() {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	waitFor(t, time.Second, m.HasLease)

	id, ok := m.LeaseID()
	assert.True(t, ok)
	assert.Equal(t, "lease-A", id)

	mu.Lock()
	assert.GreaterOrEqual(t, changes, int32(1))
	mu.Unlock()

	found := false
	for _, e := range tw.snapshot() {
		if e.level == LevelInfo && e.message == "Host lock lease acquired by instance ID 'instance-1'." {
			found = true
		}
	}
	assert.True(t, found, "expected acquisition Info trace")
}

// Scenario 2: Lease stolen.
func TestLeaseStolen(t *testing.T) {
	tw := &recordingTraceWriter{}
	provider := &fakeProvider{
		acquireResults: []acquireResult{{leaseID: "lease-A"}},
		renewErrs:      []error{NewError(ErrConflict, nil)},
	}

	cfg := baseConfig(tw)
	cfg.RenewalInterval = 30 * time.Millisecond
	cfg.RetryInterval = 30 * time.Millisecond

	m, err := New(provider, cfg)
	require.NoError(t, err)
	defer m.Dispose()

	waitFor(t, time.Second, m.HasLease)
	waitFor(t, time.Second, func() bool { return !m.HasLease() })

	_, ok := m.LeaseID()
	assert.False(t, ok)

	re := regexp.MustCompile(`^Failed to renew host lock lease: Another host has acquired the lease\. The last successful renewal completed at .+ \(\d+ milliseconds ago\) with a duration of \d+ milliseconds\.$`)
	var matched bool
	for _, e := range tw.snapshot() {
		if e.level == LevelInfo && re.MatchString(e.message) {
			matched = true
		}
	}
	assert.True(t, matched, "expected conflict-while-renewing trace matching template")
}

// Scenario 3: Transient acquire error then success.
func TestTransientAcquireThenSuccess(t *testing.T) {
	tw := &recordingTraceWriter{}
	provider := &fakeProvider{
		acquireResults: []acquireResult{
			{err: NewError(ErrTransientServer, nil)},
			{leaseID: "lease-B"},
		},
	}

	cfg := baseConfig(tw)
	cfg.RetryInterval = 20 * time.Millisecond

	m, err := New(provider, cfg)
	require.NoError(t, err)
	defer m.Dispose()

	waitFor(t, time.Second, m.HasLease)
	id, _ := m.LeaseID()
	assert.Equal(t, "lease-B", id)

	assert.GreaterOrEqual(t, tw.countLevel(LevelVerbose), 1)
	assert.GreaterOrEqual(t, tw.countLevel(LevelInfo), 1)
}

// Scenario 4: Dispose releases.
func TestDisposeReleases(t *testing.T) {
	tw := &recordingTraceWriter{}
	provider := &fakeProvider{acquireResults: []acquireResult{{leaseID: "lease-A"}}}

	m, err := New(provider, baseConfig(tw))
	require.NoError(t, err)

	waitFor(t, time.Second, m.HasLease)

	m.Dispose()

	provider.mu.Lock()
	releases := provider.releases
	provider.mu.Unlock()
	require.Len(t, releases, 1)
	assert.Equal(t, "lease-A", releases[0].LeaseID)

	assert.Equal(t, StateDisposed, m.State())

	// Second dispose is a no-op: no additional release.
	m.Dispose()
	provider.mu.Lock()
	releases = provider.releases
	provider.mu.Unlock()
	assert.Len(t, releases, 1)
}

func TestHasLeaseMatchesHeldLeaseID(t *testing.T) {
	tw := &recordingTraceWriter{}
	provider := &fakeProvider{acquireResults: []acquireResult{{leaseID: "lease-A"}}}

	m, err := New(provider, baseConfig(tw))
	require.NoError(t, err)
	defer m.Dispose()

	waitFor(t, time.Second, m.HasLease)
	id, ok := m.LeaseID()
	assert.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, ok, m.HasLease())
}
