package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Querier is the query surface shared by DB and transactions. Queries are
// written with '?' placeholders and rebound for the active driver.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	// SelectContext scans every row into dest, a pointer to a slice.
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	// GetContext scans a single row into dest; sql.ErrNoRows when empty.
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Driver() Driver
}

// DB wraps a sqlx pool together with the backend it talks to.
type DB struct {
	sql    *sqlx.DB
	driver Driver
}

// Open creates a connection pool for the given driver and verifies it.
func Open(ctx context.Context, driver Driver, dsn string) (*DB, error) {
	name, err := driver.sqlDriverName()
	if err != nil {
		return nil, err
	}
	conn, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open: %w", err)
	}
	if driver == DriverSQLite {
		// an in-memory database lives and dies with its connection
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	return &DB{sql: conn, driver: driver}, nil
}

// Driver reports the backend of the pool.
func (d *DB) Driver() Driver {
	return d.driver
}

// Rebind rewrites '?' placeholders into the driver's bindvar style.
func (d *DB) Rebind(query string) string {
	return d.sql.Rebind(query)
}

// ExecContext runs a statement that returns no rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.sql.Rebind(query), args...)
}

// QueryContext runs a query returning rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.sql.Rebind(query), args...)
}

// QueryRowContext runs a query expected to return at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.sql.Rebind(query), args...)
}

// SelectContext scans all rows into dest.
func (d *DB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sql.SelectContext(ctx, dest, d.sql.Rebind(query), args...)
}

// GetContext scans one row into dest.
func (d *DB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sql.GetContext(ctx, dest, d.sql.Rebind(query), args...)
}

// Ping checks the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("platform/db: ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}
