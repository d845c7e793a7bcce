package lease

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lease manager's operational state.
type State int

const (
	// StateSeeking means no lease is held; the manager retries every retryInterval.
	StateSeeking State = iota
	// StateHolding means the lease is owned and renewed every renewalInterval.
	StateHolding
	// StateDisposed is terminal; no further acquire/renew/release is attempted.
	StateDisposed
)

// String returns a lowercase name suitable for status reporting and metrics labels.
func (s State) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateHolding:
		return "holding"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

const (
	minLeaseTimeout = 15 * time.Second
	maxLeaseTimeout = 60 * time.Second
	defaultRetry    = 5 * time.Second
	isoMillisLayout = "2006-01-02T15:04:05.000Z"
)

// Config is the construction contract for a Manager.
type Config struct {
	// AccountName identifies the shared storage account the lease lives in.
	AccountName string
	// HostID is the logical host identity the lease guards.
	HostID string
	// InstanceID distinguishes this process among the instances racing for
	// the lease.
	InstanceID string
	// LeaseTimeout is the lease period; must be within [15s, 60s].
	LeaseTimeout time.Duration
	// RenewalInterval overrides the default of LeaseTimeout-3s.
	RenewalInterval time.Duration
	// RetryInterval overrides the default 5s cadence while seeking.
	RetryInterval time.Duration
	// TraceWriter receives the manager's diagnostic output. Optional; a
	// no-op writer is used when nil.
	TraceWriter TraceWriter
	// OnTransition, if set, is invoked (outside any lock) whenever the
	// manager moves between states, after the state mutation is visible to
	// readers. Intended for an audit recorder; failures are the recorder's
	// problem, not the manager's.
	OnTransition func(from, to State, leaseID string)
}

// Manager maintains best-effort ownership of a named lease against an
// external Provider, publishes ownership transitions, and releases the
// lease on shutdown.
type Manager struct {
	provider Provider

	accountName     string
	hostID          string
	instanceID      string
	leaseTimeout    time.Duration
	renewalInterval time.Duration
	retryInterval   time.Duration
	traceWriter     TraceWriter
	onTransition    func(from, to State, leaseID string)

	mu                 sync.RWMutex
	heldLeaseID        string
	lastRenewalAt      time.Time
	lastRenewalLatency time.Duration
	disposed           bool

	inFlight atomic.Bool

	subscribers atomic.Pointer[[]func()]

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New validates cfg, applies its defaults, and starts the manager's
// internal periodic tick. The first tick fires immediately; until the
// first successful acquire it repeats every retryInterval, then every
// renewalInterval.
func New(provider Provider, cfg Config) (*Manager, error) {
	if provider == nil {
		return nil, NewError(ErrInvalidArgument, errors.New("provider is required"))
	}
	if cfg.LeaseTimeout < minLeaseTimeout || cfg.LeaseTimeout > maxLeaseTimeout {
		return nil, NewError(ErrInvalidArgument, fmt.Errorf(
			"leaseTimeout must be within [%s, %s], got %s", minLeaseTimeout, maxLeaseTimeout, cfg.LeaseTimeout))
	}
	if cfg.AccountName == "" || cfg.HostID == "" || cfg.InstanceID == "" {
		return nil, NewError(ErrInvalidArgument, errors.New("accountName, hostID, and instanceID are all required"))
	}

	renewalInterval := cfg.RenewalInterval
	if renewalInterval <= 0 {
		renewalInterval = cfg.LeaseTimeout - 3*time.Second
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetry
	}

	tw := cfg.TraceWriter
	if tw == nil {
		tw = noopTraceWriter{}
	}

	m := &Manager{
		provider:        provider,
		accountName:     cfg.AccountName,
		hostID:          cfg.HostID,
		instanceID:      cfg.InstanceID,
		leaseTimeout:    cfg.LeaseTimeout,
		renewalInterval: renewalInterval,
		retryInterval:   retryInterval,
		traceWriter:     tw,
		onTransition:    cfg.OnTransition,
		stopCh:          make(chan struct{}),
	}

	m.wg.Add(1)
	go m.run()

	return m, nil
}

// HasLease is a read-only snapshot of invariant I1: heldLeaseID != none.
func (m *Manager) HasLease() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heldLeaseID != ""
}

// LeaseID returns the current held lease id and whether one is held.
func (m *Manager) LeaseID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heldLeaseID, m.heldLeaseID != ""
}

// State reports the manager's current operational state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.disposed:
		return StateDisposed
	case m.heldLeaseID != "":
		return StateHolding
	default:
		return StateSeeking
	}
}

// Snapshot is a read-only view of the manager's current public state,
// intended for a status endpoint.
type Snapshot struct {
	HasLease           bool
	LeaseID            string
	State              State
	LastRenewalAt      time.Time
	LastRenewalLatency time.Duration
}

// Snapshot returns the manager's current state under a single lock
// acquisition, so a status endpoint never observes a torn read.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		HasLease:           m.heldLeaseID != "",
		LeaseID:            m.heldLeaseID,
		LastRenewalAt:      m.lastRenewalAt,
		LastRenewalLatency: m.lastRenewalLatency,
	}
	switch {
	case m.disposed:
		s.State = StateDisposed
	case s.HasLease:
		s.State = StateHolding
	default:
		s.State = StateSeeking
	}
	return s
}

// OnLeaseChanged registers fn to be invoked after every transition of
// heldLeaseID across the case-insensitive distinctness relation (I2).
// Subscribers are snapshotted copy-on-fire: a subscription added while a
// firing is in progress is not guaranteed to observe that firing.
func (m *Manager) OnLeaseChanged(fn func()) {
	for {
		oldPtr := m.subscribers.Load()
		var old []func()
		if oldPtr != nil {
			old = *oldPtr
		}
		next := make([]func(), len(old)+1)
		copy(next, old)
		next[len(old)] = fn
		if m.subscribers.CompareAndSwap(oldPtr, &next) {
			return
		}
	}
}

func (m *Manager) fireChanged() {
	ptr := m.subscribers.Load()
	if ptr == nil {
		return
	}
	for _, fn := range *ptr {
		fn()
	}
}

// Dispose stops the tick, releases the lease if held (best-effort), and
// transitions to Disposed. Idempotent (I4).
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	held := m.heldLeaseID
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	if m.onTransition != nil {
		m.onTransition(stateFor(held != ""), StateDisposed, held)
	}

	if held == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.leaseTimeout)
	defer cancel()
	def := m.buildDefinition()
	def.LeaseID = held
	_ = m.provider.Release(ctx, def) // best-effort: swallow per design note on dispose
}

func stateFor(holding bool) State {
	if holding {
		return StateHolding
	}
	return StateSeeking
}

func (m *Manager) isDisposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}

// run drives the timer. A single time.Timer (not a Ticker) is used because
// the cadence itself changes between retryInterval and renewalInterval as
// the manager transitions between Seeking and Holding.
func (m *Manager) run() {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-timer.C:
			m.tick()
			timer.Reset(m.currentInterval())
		}
	}
}

func (m *Manager) currentInterval() time.Duration {
	if m.HasLease() {
		return m.renewalInterval
	}
	return m.retryInterval
}

// tick implements the spec's tick algorithm: drop the tick if a request is
// already in flight, otherwise mark in-flight and run acquireOrRenew on a
// background goroutine so the timer loop is never blocked on the provider.
func (m *Manager) tick() {
	if m.isDisposed() {
		return
	}
	if !m.inFlight.CompareAndSwap(false, true) {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.inFlight.Store(false)

		if m.isDisposed() {
			return
		}
		if err := m.acquireOrRenew(); err != nil {
			m.handleError(err)
		}
	}()
}

func (m *Manager) buildDefinition() Definition {
	return Definition{
		AccountName: m.accountName,
		Namespace:   "locks",
		Name:        BlobName(m.hostID),
		Period:      m.leaseTimeout,
	}
}

func (m *Manager) acquireOrRenew() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.leaseTimeout)
	defer cancel()

	def := m.buildDefinition()
	requestStart := time.Now()

	if leaseID, holding := m.LeaseID(); holding {
		def.LeaseID = leaseID
		if err := m.provider.Renew(ctx, def); err != nil {
			return err
		}
		m.recordRenewal(requestStart)
		return nil
	}

	def.LeaseID = m.instanceID
	newID, err := m.provider.Acquire(ctx, def)
	if err != nil {
		return err
	}

	m.transitionTo(newID)
	m.recordRenewal(requestStart)
	m.traceWriter.Trace(LevelInfo, fmt.Sprintf("Host lock lease acquired by instance ID '%s'.", m.instanceID))
	return nil
}

func (m *Manager) recordRenewal(requestStart time.Time) {
	m.mu.Lock()
	m.lastRenewalAt = time.Now()
	m.lastRenewalLatency = m.lastRenewalAt.Sub(requestStart)
	m.mu.Unlock()
}

// transitionTo sets heldLeaseID, publishing state before firing the change
// event so the mutation is visible to subscribers (publish-after-update).
func (m *Manager) transitionTo(newLeaseID string) {
	m.mu.Lock()
	old := m.heldLeaseID
	changed := !strings.EqualFold(old, newLeaseID)
	m.heldLeaseID = newLeaseID
	m.mu.Unlock()

	if !changed {
		return
	}
	if m.onTransition != nil {
		m.onTransition(stateFor(old != ""), stateFor(newLeaseID != ""), newLeaseID)
	}
	m.fireChanged()
}

// reset clears heldLeaseID (Holding -> Seeking), firing exactly one change
// event if a lease was actually held.
func (m *Manager) reset() {
	m.transitionTo("")
}

// handleError classifies a failed acquire/renew and routes it to
// processError with the reason text the regression tests key off of.
func (m *Manager) handleError(err error) {
	kind := KindOf(err)
	_, wasHolding := m.LeaseID()

	var reason string
	switch {
	case kind == ErrConflict && wasHolding:
		m.mu.RLock()
		lastRenewalAt := m.lastRenewalAt
		lastLatency := m.lastRenewalLatency
		m.mu.RUnlock()
		msSinceSuccess := time.Since(lastRenewalAt).Milliseconds()
		reason = fmt.Sprintf(
			"Another host has acquired the lease. The last successful renewal completed at %s (%d milliseconds ago) with a duration of %d milliseconds.",
			lastRenewalAt.UTC().Format(isoMillisLayout), msSinceSuccess, lastLatency.Milliseconds())
	default:
		reason = err.Error()
	}

	m.processError(reason)
}

// processError implements §4.1's processError(reason): reset and log at
// Info if we held the lease, otherwise log a routine Verbose diagnostic.
func (m *Manager) processError(reason string) {
	if m.HasLease() {
		m.reset()
		m.traceWriter.Trace(LevelInfo, fmt.Sprintf("Failed to renew host lock lease: %s", reason))
		return
	}
	m.traceWriter.Trace(LevelVerbose, fmt.Sprintf("Host instance '%s' failed to acquire host lock lease: %s", m.instanceID, reason))
}
