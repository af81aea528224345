package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// Trades live in backtest_trades keyed by (run_id, seq).
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const selectRunColumns = `
	run_id, strategy_id, symbol, interval, created_at,
	initial_capital, final_equity, total_return, total_trades,
	sharpe_ratio, sortino_ratio, calmar_ratio, max_drawdown,
	equity_curve, trade_stats
`

// Insert adds a run and its trades atomically. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	if run == nil || run.RunID == "" || run.Result == nil {
		return storage.ErrInvalidInput
	}
	r := run.Result

	var stats any
	if r.TradeStats != nil {
		data, err := json.Marshal(r.TradeStats)
		if err != nil {
			return fmt.Errorf("marshal trade stats: %w", err)
		}
		stats = data
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO backtest_runs (`+selectRunColumns+`) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15
		)`,
		run.RunID, run.StrategyID, run.Symbol, run.Interval, run.CreatedAt,
		r.InitialCapital, r.FinalEquity, r.TotalReturn, r.TotalTrades,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio, r.MaxDrawdown,
		r.EquityCurve, stats,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}

	if len(r.Trades) > 0 {
		batch := &pgx.Batch{}
		for i, t := range r.Trades {
			batch.Queue(`
				INSERT INTO backtest_trades (
					run_id, seq, entry_timestamp, exit_timestamp,
					entry_price, exit_price, quantity, pnl, pnl_pct,
					duration_bars, is_win, exit_reason
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				run.RunID, i, t.EntryTimestamp, t.ExitTimestamp,
				t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.PnLPct,
				t.DurationBars, t.IsWin, t.ExitReason,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert backtest trades: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a run with its trades. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectRunColumns+` FROM backtest_runs WHERE run_id = $1`, runID)
	run, err := scanBacktestRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}

	trades, err := s.getTrades(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Result.Trades = trades
	return run, nil
}

// ListByStrategy retrieves runs of a strategy without their trades.
func (s *BacktestRunStore) ListByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectRunColumns+`
		FROM backtest_runs
		WHERE strategy_id = $1
		ORDER BY created_at ASC, run_id ASC`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs by strategy: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		run, err := scanBacktestRun(rows)
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

func (s *BacktestRunStore) getTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			entry_timestamp, exit_timestamp, entry_price, exit_price,
			quantity, pnl, pnl_pct, duration_bars, is_win, exit_reason
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("get backtest trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.EntryTimestamp, &t.ExitTimestamp, &t.EntryPrice, &t.ExitPrice,
			&t.Quantity, &t.PnL, &t.PnLPct, &t.DurationBars, &t.IsWin, &t.ExitReason,
		); err != nil {
			return nil, fmt.Errorf("scan backtest trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest trade rows: %w", err)
	}
	return trades, nil
}

// scanBacktestRun scans a single row into a BacktestRun.
func scanBacktestRun(row pgx.Row) (*domain.BacktestRun, error) {
	var (
		run   domain.BacktestRun
		r     domain.BacktestResult
		stats []byte
	)

	err := row.Scan(
		&run.RunID, &run.StrategyID, &run.Symbol, &run.Interval, &run.CreatedAt,
		&r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.TotalTrades,
		&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio, &r.MaxDrawdown,
		&r.EquityCurve, &stats,
	)
	if err != nil {
		return nil, err
	}

	if stats != nil {
		var ts domain.TradeStats
		if err := json.Unmarshal(stats, &ts); err != nil {
			return nil, fmt.Errorf("unmarshal trade stats: %w", err)
		}
		r.TradeStats = &ts
	}

	run.Result = &r
	return &run, nil
}
