package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/domain"
	"strataquant/internal/idhash"
	"strataquant/internal/observability"
	"strataquant/internal/storage"
	"strataquant/internal/strategy"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Bars    storage.PriceBarStore    // required for Run
	Runs    storage.BacktestRunStore // required
	Curves  storage.EquityCurveStore // optional
	Metrics *observability.Metrics   // optional
	Logger  *zap.Logger              // optional
	Now     func() time.Time         // defaults to time.Now
}

// Runner loads bars, runs the engine and persists the run.
type Runner struct {
	bars    storage.PriceBarStore
	runs    storage.BacktestRunStore
	curves  storage.EquityCurveStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRunner creates a new storage-backed runner.
func NewRunner(opts RunnerOptions) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		bars:    opts.Bars,
		runs:    opts.Runs,
		curves:  opts.Curves,
		metrics: opts.Metrics,
		logger:  observability.OrNop(opts.Logger),
		now:     now,
	}
}

// RunRequest identifies the series, the strategy and the engine config.
type RunRequest struct {
	Symbol   string
	Interval string
	Start    int64 // ms, inclusive; 0 with End 0 means the whole series
	End      int64 // ms, inclusive
	Strategy domain.StrategyConfig
	Config   Config
}

// Run loads the requested bars from the price store and runs RunBars.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*domain.BacktestRun, error) {
	if r.bars == nil {
		return nil, errors.New("runner has no price bar store")
	}

	var (
		bars []domain.PriceBar
		err  error
	)
	if req.Start == 0 && req.End == 0 {
		bars, err = r.bars.GetBySeries(ctx, req.Symbol, req.Interval)
	} else {
		bars, err = r.bars.GetByTimeRange(ctx, req.Symbol, req.Interval, req.Start, req.End)
	}
	r.metrics.RecordStorageOp("price_bars", "get", err)
	if err != nil {
		return nil, fmt.Errorf("load bars %s/%s: %w", req.Symbol, req.Interval, err)
	}

	return r.RunBars(ctx, bars, req)
}

// RunBars runs the engine over already loaded bars and persists the run.
// Runs are keyed by a deterministic ID; re-running identical inputs returns
// the stored run instead of failing.
func (r *Runner) RunBars(ctx context.Context, bars []domain.PriceBar, req RunRequest) (*domain.BacktestRun, error) {
	strat, err := strategy.FromConfig(req.Strategy)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(bars, req.Config)
	if err != nil {
		return nil, err
	}

	strategyID := req.Strategy.ID()
	runID := idhash.ComputeRunID(strategyID, req.Symbol, req.Interval,
		fmt.Sprintf("%s|bars=%d:%d-%d", req.Config.Key(), len(bars), bars[0].Timestamp, bars[len(bars)-1].Timestamp))

	started := time.Now()
	result := engine.Run(strat)
	elapsed := time.Since(started)

	reasons := make([]string, len(result.Trades))
	for i, t := range result.Trades {
		reasons[i] = t.ExitReason
	}
	r.metrics.RecordBacktest(strategyID, len(bars), engine.RiskMetrics().Violations, reasons, elapsed)

	r.logger.Info("backtest complete",
		zap.String("run_id", runID),
		zap.String("strategy", strategyID),
		zap.String("symbol", req.Symbol),
		zap.Int("bars", len(bars)),
		zap.Int("trades", result.TotalTrades),
		zap.Float64("total_return", result.TotalReturn),
		zap.Float64("sharpe", result.SharpeRatio),
		zap.Duration("elapsed", elapsed),
	)

	run := &domain.BacktestRun{
		RunID:      runID,
		StrategyID: strategyID,
		Symbol:     req.Symbol,
		Interval:   req.Interval,
		CreatedAt:  r.now().UnixMilli(),
		Result:     result,
	}

	err = r.runs.Insert(ctx, run)
	r.metrics.RecordStorageOp("backtest_runs", "insert", ignoreDuplicate(err))
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Debug("run already stored", zap.String("run_id", runID))
		return r.runs.GetByID(ctx, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("store run %s: %w", runID, err)
	}

	if r.curves != nil {
		err = r.curves.Insert(ctx, runID, result.EquityCurve)
		r.metrics.RecordStorageOp("equity_curves", "insert", ignoreDuplicate(err))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("store equity curve %s: %w", runID, err)
		}
	}

	return run, nil
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}
