// Package database provides PostgreSQL connection management via pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New creates a new database connection pool and verifies it with a ping.
func New(ctx context.Context, url string, maxConns, minConns int) (*DB, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if minConns > 0 && minConns <= maxConns {
		cfg.MinConns = int32(minConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// schema bootstraps the tables used by the course store and the generation
// event log. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL,
		document   JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS courses_owner_created_idx ON courses (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS generation_events (
		id         BIGSERIAL PRIMARY KEY,
		course_id  TEXT,
		user_id    TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the application tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, db.Pool)
}

// EnsureSchema creates the application tables on the given pool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
