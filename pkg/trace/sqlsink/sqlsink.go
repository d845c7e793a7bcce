// Package sqlsink implements a trace.Sink that ships batches to a
// PostgreSQL table, one row per record, one connection per flush.
package sqlsink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver used only for migrations

	"github.com/hostlease/hostlease/pkg/trace"
	"github.com/hostlease/hostlease/pkg/trace/sqlsink/migrations"
)

// traceLevelPlaceholder is the fixed value written to the traceLevel column.
// The source schema models trace levels as a numeric severity scale the
// host side does not otherwise participate in; every row gets this value
// rather than inventing a mapping this sink has no authority over.
const traceLevelPlaceholder = 100

// Sink writes trace.Records into the host_traces table.
type Sink struct {
	pool       *pgxpool.Pool
	serverName string
	appName    string
}

// New runs pending migrations against dsn and returns a Sink that inserts
// rows tagged with serverName/appName. serverName must not be blank.
func New(ctx context.Context, dsn, serverName, appName string) (*Sink, error) {
	if serverName == "" {
		return nil, errors.New("sqlsink: serverName is required")
	}

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("sqlsink: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlsink: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlsink: ping: %w", err)
	}

	return &Sink{pool: pool, serverName: serverName, appName: appName}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "host_traces_schema_migrations",
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

// FlushBatch opens a connection from the pool, inserts one row per record,
// and always releases the connection before returning.
func (s *Sink) FlushBatch(ctx context.Context, records []trace.Record) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("sqlsink: acquire: %w", err)
	}
	defer conn.Release()

	for _, r := range records {
		var functionName any
		if r.FunctionName != "" {
			functionName = r.FunctionName
		}

		_, err := conn.Exec(ctx,
			`INSERT INTO host_traces (timestamp, server_name, app_name, function_name, trace_level, message)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.Timestamp, s.serverName, s.appName, functionName, traceLevelPlaceholder, r.Message)
		if err != nil {
			return fmt.Errorf("sqlsink: insert: %w", err)
		}
	}

	return nil
}

// Close closes the underlying connection pool. Idempotent.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
