//go:build e2e

package pglease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hostlease/hostlease/pkg/lease"
)

func TestAcquireRenewRelease(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("hostlease"),
		postgres.WithUsername("hostlease"),
		postgres.WithPassword("hostlease"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	p, err := New(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	def := lease.Definition{AccountName: "acct", Namespace: "locks", Name: "locks/host-1/host", Period: 15 * time.Second}

	id, err := p.Acquire(ctx, def)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	def.LeaseID = id
	require.NoError(t, p.Renew(ctx, def))

	other := def
	other.LeaseID = "someone-else"
	_, err = p.Acquire(ctx, other)
	require.Error(t, err)
	require.Equal(t, lease.ErrConflict, lease.KindOf(err))

	require.NoError(t, p.Release(ctx, def))

	id2, err := p.Acquire(ctx, other)
	require.NoError(t, err)
	require.NotEmpty(t, id2)
}
