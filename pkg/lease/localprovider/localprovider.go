// Package localprovider implements lease.Provider against an embedded
// badger key-value store, for single-process or disk-shared-but-not-truly-
// distributed deployments where pulling in Postgres or S3 is overkill.
// Badger's single-writer transactions give the same-process equivalent of
// the fencing pglease/s3lease get from their backing stores.
package localprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/hostlease/hostlease/pkg/lease"
)

// metricsRecorder is the narrow slice of pkg/metrics.LocalProviderMetrics
// this package needs, kept local so it never imports pkg/metrics directly.
type metricsRecorder interface {
	RecordHit(hostID string)
	RecordMiss(hostID string)
}

// Provider is a lease.Provider backed by a local badger database.
type Provider struct {
	db      *badgerdb.DB
	metrics metricsRecorder
}

type record struct {
	LeaseID   string    `json:"leaseId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New opens (creating if necessary) a badger database rooted at path.
func New(path string) (*Provider, error) {
	return NewWithMetrics(path, nil)
}

// NewWithMetrics is New plus an optional metrics recorder.
func NewWithMetrics(path string, metrics metricsRecorder) (*Provider, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, lease.NewError(lease.ErrOther, fmt.Errorf("localprovider: open: %w", err))
	}
	return &Provider{db: db, metrics: metrics}, nil
}

func key(def lease.Definition) []byte {
	return []byte(def.AccountName + "/" + def.Namespace + "/" + def.Name)
}

func (p *Provider) recordHit(def lease.Definition) {
	if p.metrics != nil {
		p.metrics.RecordHit(def.Name)
	}
}

func (p *Provider) recordMiss(def lease.Definition) {
	if p.metrics != nil {
		p.metrics.RecordMiss(def.Name)
	}
}

// Acquire claims def.Name, succeeding only if no record exists or the
// existing record has already expired.
func (p *Provider) Acquire(_ context.Context, def lease.Definition) (string, error) {
	newID := fmt.Sprintf("%x", time.Now().UnixNano())

	err := p.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(def))
		switch {
		case errors.Is(err, badgerdb.ErrKeyNotFound):
			p.recordMiss(def)
		case err != nil:
			return err
		default:
			p.recordHit(def)
			var cur record
			if decodeErr := item.Value(func(val []byte) error { return json.Unmarshal(val, &cur) }); decodeErr != nil {
				return decodeErr
			}
			if time.Now().Before(cur.ExpiresAt) {
				return lease.NewError(lease.ErrConflict, errors.New("lease is currently held by another instance"))
			}
		}

		payload, err := json.Marshal(record{LeaseID: newID, ExpiresAt: time.Now().Add(def.Period)})
		if err != nil {
			return err
		}
		return txn.Set(key(def), payload)
	})
	if err != nil {
		return "", wrapBadgerErr(err)
	}

	return newID, nil
}

// Renew extends def.Name's expiry, succeeding only while def.LeaseID still
// owns an unexpired record.
func (p *Provider) Renew(_ context.Context, def lease.Definition) error {
	err := p.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(def))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			p.recordMiss(def)
			return lease.NewError(lease.ErrConflict, errors.New("lease no longer exists"))
		}
		if err != nil {
			return err
		}
		p.recordHit(def)

		var cur record
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &cur) }); err != nil {
			return err
		}
		if cur.LeaseID != def.LeaseID || !time.Now().Before(cur.ExpiresAt) {
			return lease.NewError(lease.ErrConflict, errors.New("lease is no longer owned by this instance"))
		}

		payload, err := json.Marshal(record{LeaseID: def.LeaseID, ExpiresAt: time.Now().Add(def.Period)})
		if err != nil {
			return err
		}
		return txn.Set(key(def), payload)
	})
	return wrapBadgerErr(err)
}

// Release deletes def.Name's record if still owned by def.LeaseID.
func (p *Provider) Release(_ context.Context, def lease.Definition) error {
	err := p.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(def))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var cur record
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &cur) }); err != nil {
			return err
		}
		if cur.LeaseID != def.LeaseID {
			return nil
		}
		return txn.Delete(key(def))
	})
	return wrapBadgerErr(err)
}

// Close closes the underlying badger database.
func (p *Provider) Close() error {
	return p.db.Close()
}

func wrapBadgerErr(err error) error {
	if err == nil {
		return nil
	}
	var le *lease.Error
	if errors.As(err, &le) {
		return le
	}
	return lease.NewError(lease.ErrOther, err)
}
