// Package postgres provides PostgreSQL-based storage implementations for
// medprice services. Fuzzy matching uses the pg_trgm extension.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultMaxConns is the pool size used when none is configured.
const DefaultMaxConns = 4

// DB represents a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	dsn  string

	// MaxConns bounds the pool. Zero means DefaultMaxConns.
	MaxConns int32
}

// NewDB creates a new DB instance for the given connection string.
func NewDB(dsn string) *DB {
	return &DB{dsn: dsn}
}

// Open connects the pool and creates the schema if needed.
func (db *DB) Open(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(db.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = db.MaxConns
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.pool = pool

	if err := db.createSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the pool.
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Pool returns the underlying pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) createSchema(ctx context.Context) error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS pg_trgm;

		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			composition TEXT NOT NULL DEFAULT '',
			manufacturer TEXT NOT NULL DEFAULT '',
			pack_size TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (name, manufacturer)
		);

		CREATE INDEX IF NOT EXISTS idx_entries_name_trgm ON entries USING gin (name gin_trgm_ops);
		CREATE INDEX IF NOT EXISTS idx_entries_composition_trgm ON entries USING gin (composition gin_trgm_ops);

		CREATE TABLE IF NOT EXISTS quotes (
			entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
			vendor TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			in_stock BOOLEAN NOT NULL DEFAULT TRUE,
			observed_at TIMESTAMPTZ NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, vendor)
		);

		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			seq BIGSERIAL
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`

	_, err := db.pool.Exec(ctx, schema)
	return err
}
