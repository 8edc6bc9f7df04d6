// Package postgres provides the database access layer: connection
// management, schema inspection over information_schema, and guarded
// read-only query execution.
//
// The executor enforces the safety properties the agent relies on: a
// SELECT/WITH-only gate, a row cap applied by wrapping the statement, and a
// per-query timeout. Server-side SQL errors come back as
// *sqlagent.ToolFailure with a stable class so the model can correct the
// query; connection-level errors come back raw and terminate the run.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config holds connection settings for Open.
type Config struct {
	// DSN is the Postgres connection string.
	DSN string

	// MaxOpenConns caps open connections; zero keeps the driver default.
	MaxOpenConns int

	// MaxIdleConns caps idle connections; zero keeps the driver default.
	MaxIdleConns int

	// ConnMaxIdleTime closes connections idle longer than this.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration
}

// Open opens a pgx-backed database handle, applies pool settings, and
// verifies connectivity with a bounded ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
