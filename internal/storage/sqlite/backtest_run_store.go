package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore on SQLite.
// The full result is stored as a JSON document.
type BacktestRunStore struct {
	db *DB
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(db *DB) *BacktestRunStore {
	return &BacktestRunStore{db: db}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	if run == nil || run.RunID == "" || run.Result == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (run_id, strategy_id, symbol, interval, created_at, result)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StrategyID, run.Symbol, run.Interval, run.CreatedAt, string(data),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, strategy_id, symbol, interval, created_at, result
		FROM backtest_runs WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return run, nil
}

// ListByStrategy retrieves runs of a strategy, ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) ListByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, strategy_id, symbol, interval, created_at, result
		FROM backtest_runs
		WHERE strategy_id = ?
		ORDER BY created_at ASC, run_id ASC`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.BacktestRun, error) {
	var (
		run  domain.BacktestRun
		data string
	)
	if err := row.Scan(&run.RunID, &run.StrategyID, &run.Symbol, &run.Interval, &run.CreatedAt, &data); err != nil {
		return nil, err
	}

	var result domain.BacktestResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	run.Result = &result
	return &run, nil
}
