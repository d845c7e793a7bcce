// Package pglease implements lease.Provider against PostgreSQL, using
// row-level fencing on an expires_at column instead of advisory locks: an
// acquire only succeeds if no row exists or the existing row has already
// expired, and a renew only succeeds while the caller still owns the row
// and it has not expired.
package pglease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver used only for migrations

	"github.com/hostlease/hostlease/pkg/lease"
	"github.com/hostlease/hostlease/pkg/lease/pglease/migrations"
)

// Provider is a lease.Provider backed by a single PostgreSQL table.
type Provider struct {
	pool *pgxpool.Pool
}

// New runs pending migrations against dsn and returns a ready Provider.
func New(ctx context.Context, dsn string) (*Provider, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, lease.NewError(lease.ErrOther, fmt.Errorf("pglease: migrate: %w", err))
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, lease.NewError(lease.ErrOther, fmt.Errorf("pglease: connect: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, lease.NewError(lease.ErrOther, fmt.Errorf("pglease: ping: %w", err))
	}

	return &Provider{pool: pool}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "leases_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("up: %w", err)
	}
	return nil
}

// Acquire claims def.Name, generating a fresh lease id, succeeding only if
// no row exists for the name or the existing row has already expired.
func (p *Provider) Acquire(ctx context.Context, def lease.Definition) (string, error) {
	newID := uuid.NewString()

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO leases (account_name, namespace, name, lease_id, expires_at)
		 VALUES ($1, $2, $3, $4, now() + make_interval(secs => $5))
		 ON CONFLICT (account_name, namespace, name) DO UPDATE
		   SET lease_id = EXCLUDED.lease_id, expires_at = EXCLUDED.expires_at
		   WHERE leases.expires_at < now()`,
		def.AccountName, def.Namespace, def.Name, newID, def.Period.Seconds())
	if err != nil {
		return "", classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return "", lease.NewError(lease.ErrConflict, errors.New("lease is currently held by another instance"))
	}

	return newID, nil
}

// Renew extends def.Name's expiry, succeeding only while def.LeaseID still
// owns an unexpired row.
func (p *Provider) Renew(ctx context.Context, def lease.Definition) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE leases SET expires_at = now() + make_interval(secs => $5)
		 WHERE account_name = $1 AND namespace = $2 AND name = $3 AND lease_id = $4 AND expires_at > now()`,
		def.AccountName, def.Namespace, def.Name, def.LeaseID, def.Period.Seconds())
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return lease.NewError(lease.ErrConflict, errors.New("lease is no longer owned by this instance"))
	}
	return nil
}

// Release deletes def.Name's row if still owned by def.LeaseID. Releasing a
// lease this instance does not own is not an error.
func (p *Provider) Release(ctx context.Context, def lease.Definition) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM leases WHERE account_name = $1 AND namespace = $2 AND name = $3 AND lease_id = $4`,
		def.AccountName, def.Namespace, def.Name, def.LeaseID)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Provider) Close() {
	p.pool.Close()
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pgx.ErrTxClosed) {
		return lease.NewError(lease.ErrTransientServer, err)
	}
	return lease.NewError(lease.ErrOther, err)
}
