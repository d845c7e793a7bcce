// Package audit persists a durable history of lease.Manager ownership
// transitions, alongside the in-memory trace lines the manager already
// emits through its TraceWriter.
package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hostlease/hostlease/pkg/lease"
)

// Action classifies a recorded transition.
type Action string

const (
	ActionAcquired Action = "acquired"
	ActionRenewed  Action = "renewed"
	ActionLost     Action = "lost"
	ActionReleased Action = "released"
)

// Transition is one row of lease ownership history.
type Transition struct {
	ID          uint `gorm:"primaryKey"`
	InstanceID  string
	HostID      string
	AccountName string
	Action      Action
	LeaseID     string
	At          time.Time
}

// Recorder persists Transitions via GORM. A nil *Recorder is a valid no-op,
// so callers can pass it unconditionally when auditing is disabled.
type Recorder struct {
	db          *gorm.DB
	instanceID  string
	hostID      string
	accountName string
}

// New opens a connection to dsn, auto-migrates the Transition table, and
// returns a ready Recorder tagged with instanceID/hostID/accountName.
func New(dsn, instanceID, hostID, accountName string) (*Recorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}

	if err := db.AutoMigrate(&Transition{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}

	return &Recorder{db: db, instanceID: instanceID, hostID: hostID, accountName: accountName}, nil
}

// RecordTransition maps a lease.Manager state transition to an Action and
// persists it. Intended to be passed as lease.Config.OnTransition, called
// from the same code path that fires the manager's change event, after the
// in-memory state mutation — preserving publish-after-update ordering.
func (r *Recorder) RecordTransition(from, to lease.State, leaseID string) {
	if r == nil {
		return
	}

	action := classify(from, to)
	if action == "" {
		return
	}

	row := Transition{
		InstanceID:  r.instanceID,
		HostID:      r.hostID,
		AccountName: r.accountName,
		Action:      action,
		LeaseID:     leaseID,
		At:          time.Now().UTC(),
	}
	r.db.WithContext(context.Background()).Create(&row)
}

// classify maps a Manager state transition to an Action. The manager only
// fires OnTransition on an actual heldLeaseID change — never on a routine
// renewal — so ActionRenewed never reaches here; it exists for
// History's schema completeness should a future producer start recording
// renewals explicitly.
func classify(from, to lease.State) Action {
	switch {
	case to == lease.StateDisposed && from == lease.StateHolding:
		return ActionReleased
	case to == lease.StateDisposed:
		return ""
	case from == lease.StateSeeking && to == lease.StateHolding:
		return ActionAcquired
	case from == lease.StateHolding && to == lease.StateSeeking:
		return ActionLost
	default:
		return ""
	}
}

// History returns the most recent transitions for hostID, newest first.
func (r *Recorder) History(ctx context.Context, hostID string, limit int) ([]Transition, error) {
	var rows []Transition
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit: history: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
