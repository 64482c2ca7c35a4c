// Package repository provides the user record stores.
//
// Three backends implement the same capability set (FindAll, FindByID, Save,
// DeleteByID): PostgreSQL through a pgx pool, SQLite through modernc.org/sqlite,
// and an in-memory map. Every backend assigns identifiers on first save.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/usergate/usergate/internal/migrate"
	"github.com/usergate/usergate/internal/repository/migrations"
)

// ErrUserNotFound is returned when no user matches the requested identifier.
var ErrUserNotFound = errors.New("user not found")

// Repository is the PostgreSQL user store.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, now: time.Now}, nil
}

// Migrate applies the embedded PostgreSQL migrations.
// It opens a short-lived database/sql handle through lib/pq.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := migrate.Apply(ctx, db, migrations.Postgres(), migrate.Postgres); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
