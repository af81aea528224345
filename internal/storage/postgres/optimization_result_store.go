package postgres

import (
	"context"
	"fmt"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// OptimizationResultStore implements storage.OptimizationResultStore using PostgreSQL.
type OptimizationResultStore struct {
	pool *Pool
}

// NewOptimizationResultStore creates a new OptimizationResultStore.
func NewOptimizationResultStore(pool *Pool) *OptimizationResultStore {
	return &OptimizationResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OptimizationResultStore = (*OptimizationResultStore)(nil)

// InsertBulk adds all results of a sweep atomically. Fails entire batch if the
// sweep already exists or the batch repeats a (fast, slow) pair.
func (s *OptimizationResultStore) InsertBulk(ctx context.Context, sweepID string, results []domain.OptimizationResult) error {
	if sweepID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM optimization_results WHERE sweep_id = $1)`, sweepID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check sweep exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO optimization_results (
			sweep_id, fast_period, slow_period,
			total_return, sharpe_ratio, max_drawdown, total_trades
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, r := range results {
		_, err := tx.Exec(ctx, query,
			sweepID, r.FastPeriod, r.SlowPeriod,
			r.TotalReturn, r.SharpeRatio, r.MaxDrawdown, r.TotalTrades,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert optimization result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySweepID retrieves a sweep's results. Returns ErrNotFound if the sweep has no rows.
func (s *OptimizationResultStore) GetBySweepID(ctx context.Context, sweepID string) ([]domain.OptimizationResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fast_period, slow_period, total_return, sharpe_ratio, max_drawdown, total_trades
		FROM optimization_results
		WHERE sweep_id = $1
		ORDER BY fast_period ASC, slow_period ASC`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("get optimization results: %w", err)
	}
	defer rows.Close()

	var results []domain.OptimizationResult
	for rows.Next() {
		var r domain.OptimizationResult
		if err := rows.Scan(
			&r.FastPeriod, &r.SlowPeriod, &r.TotalReturn, &r.SharpeRatio, &r.MaxDrawdown, &r.TotalTrades,
		); err != nil {
			return nil, fmt.Errorf("scan optimization result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optimization result rows: %w", err)
	}

	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	return results, nil
}
