package lease

import (
	"context"
	"fmt"
	"time"
)

// Definition describes what to lock. It is immutable per attempt; the
// Manager constructs a fresh one for every acquire/renew/release call.
type Definition struct {
	AccountName string
	Namespace   string
	Name        string
	Period      time.Duration
	LeaseID     string
}

// BlobName returns the conventional name used by providers that store
// leases in a blob-like container: "locks/{hostId}/host".
func BlobName(hostID string) string {
	return fmt.Sprintf("locks/%s/host", hostID)
}

// Provider is the capability set a lease store must expose to the
// Manager: acquire, renew, release. Implementations must return a *Error
// with Kind in {ErrConflict, ErrNotFound, ErrTransientServer, ErrOther} on
// failure so the Manager's failure-classification logic can act on it.
type Provider interface {
	// Acquire attempts to claim def.Name for def.LeaseID, returning the
	// provider-assigned lease id on success.
	Acquire(ctx context.Context, def Definition) (string, error)

	// Renew extends the lease identified by def.LeaseID.
	Renew(ctx context.Context, def Definition) error

	// Release gives up the lease identified by def.LeaseID. Best-effort:
	// callers on the dispose path swallow any error.
	Release(ctx context.Context, def Definition) error
}
