package localprovider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostlease/hostlease/pkg/lease"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestAcquireThenConflict(t *testing.T) {
	p := newTestProvider(t)
	def := lease.Definition{AccountName: "acct", Namespace: "locks", Name: "locks/host-1/host", Period: time.Minute}

	id, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = p.Acquire(context.Background(), def)
	require.Error(t, err)
	require.Equal(t, lease.ErrConflict, lease.KindOf(err))
}

func TestAcquireSucceedsAfterExpiry(t *testing.T) {
	p := newTestProvider(t)
	def := lease.Definition{AccountName: "acct", Namespace: "locks", Name: "locks/host-1/host", Period: 10 * time.Millisecond}

	_, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	id2, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)
	require.NotEmpty(t, id2)
}

func TestRenewFailsForWrongLeaseID(t *testing.T) {
	p := newTestProvider(t)
	def := lease.Definition{AccountName: "acct", Namespace: "locks", Name: "locks/host-1/host", Period: time.Minute}

	id, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)

	wrong := def
	wrong.LeaseID = id + "-other"
	err = p.Renew(context.Background(), wrong)
	require.Error(t, err)
	require.Equal(t, lease.ErrConflict, lease.KindOf(err))

	def.LeaseID = id
	require.NoError(t, p.Renew(context.Background(), def))
}

func TestReleaseOnlyRemovesOwnedLease(t *testing.T) {
	p := newTestProvider(t)
	def := lease.Definition{AccountName: "acct", Namespace: "locks", Name: "locks/host-1/host", Period: time.Minute}

	id, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)
	def.LeaseID = id

	other := def
	other.LeaseID = "not-the-holder"
	require.NoError(t, p.Release(context.Background(), other))

	id2, err := p.Acquire(context.Background(), def)
	require.Error(t, err)
	require.Empty(t, id2)

	require.NoError(t, p.Release(context.Background(), def))
	id3, err := p.Acquire(context.Background(), def)
	require.NoError(t, err)
	require.NotEmpty(t, id3)
}
