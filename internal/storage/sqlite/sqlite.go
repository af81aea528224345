// Package sqlite provides a single-file BacktestRunStore for local use
// when no PostgreSQL server is available.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// DB wraps *sql.DB opened with the sqlite3 driver.
type DB struct {
	*sql.DB
}

// Open opens (or creates) a SQLite database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id      TEXT PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			result      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy
			ON backtest_runs (strategy_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if error is a primary key or unique violation.
func isDuplicateKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
