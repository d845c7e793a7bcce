//go:build e2e

package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hostlease/hostlease/pkg/lease"
)

func TestRecordTransitionAndHistory(t *testing.T) {
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

	r, err := New(dsn, "instance-1", "host-1", "acct")
	require.NoError(t, err)
	defer r.Close()

	r.RecordTransition(lease.StateSeeking, lease.StateHolding, "lease-A")
	r.RecordTransition(lease.StateHolding, lease.StateDisposed, "lease-A")

	rows, err := r.History(ctx, "host-1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, ActionReleased, rows[0].Action)
	require.Equal(t, ActionAcquired, rows[1].Action)
}
