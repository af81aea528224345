package storage

import (
	"context"

	"strataquant/internal/domain"
)

// PriceBarStore provides access to OHLCV series keyed by (symbol, interval).
type PriceBarStore interface {
	// InsertBulk adds bars for a series. Fails entire batch on any duplicate timestamp.
	InsertBulk(ctx context.Context, symbol, interval string, bars []domain.PriceBar) error

	// GetBySeries retrieves all bars of a series, ordered by timestamp ASC.
	GetBySeries(ctx context.Context, symbol, interval string) ([]domain.PriceBar, error)

	// GetByTimeRange retrieves bars within [start, end] (inclusive, ms), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol, interval string, start, end int64) ([]domain.PriceBar, error)
}

// BacktestRunStore provides access to persisted backtest runs.
type BacktestRunStore interface {
	// Insert adds a run with its trades. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// ListByStrategy retrieves all runs of a strategy, ordered by created_at ASC, run_id ASC.
	ListByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error)
}

// OptimizationResultStore provides access to parameter sweep results.
type OptimizationResultStore interface {
	// InsertBulk adds all results of one sweep. Returns ErrDuplicateKey if the sweep exists.
	InsertBulk(ctx context.Context, sweepID string, results []domain.OptimizationResult) error

	// GetBySweepID retrieves a sweep's results ordered by (fast_period, slow_period).
	// Returns ErrNotFound if the sweep does not exist.
	GetBySweepID(ctx context.Context, sweepID string) ([]domain.OptimizationResult, error)
}

// EquityCurveStore provides access to per-bar equity values of a run.
type EquityCurveStore interface {
	// Insert adds the curve of a run. Returns ErrDuplicateKey if the run already has a curve.
	Insert(ctx context.Context, runID string, curve []float64) error

	// GetByRunID retrieves the curve ordered by bar index. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) ([]float64, error)
}
