// Package orchestrator runs several strategies over one bar series.
// It coordinates: load bars once → backtest each strategy → comparison rows
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"strataquant/internal/backtest"
	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/reporting"
	"strataquant/internal/storage"
	"strataquant/internal/strategy"
)

// ErrNoBars is returned when the requested series is empty.
var ErrNoBars = errors.New("no bars for series")

// Orchestrator coordinates a strategy comparison.
type Orchestrator struct {
	bars       storage.PriceBarStore
	runner     *backtest.Runner
	strategies []domain.StrategyConfig
	config     backtest.Config
	logger     *zap.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	Bars storage.PriceBarStore
	Runs storage.BacktestRunStore

	// Optional
	Curves  storage.EquityCurveStore
	Metrics *observability.Metrics
	Logger  *zap.Logger

	// Strategies defaults to strategy.DefaultComparisonSet.
	Strategies []domain.StrategyConfig
	Config     backtest.Config
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = strategy.DefaultComparisonSet()
	}
	logger := observability.OrNop(opts.Logger)
	return &Orchestrator{
		bars: opts.Bars,
		runner: backtest.NewRunner(backtest.RunnerOptions{
			Runs:    opts.Runs,
			Curves:  opts.Curves,
			Metrics: opts.Metrics,
			Logger:  logger,
		}),
		strategies: strategies,
		config:     opts.Config,
		logger:     logger,
	}
}

// Series selects the bars to compare on. Start and End are inclusive
// ms timestamps; both zero means the whole series.
type Series struct {
	Symbol   string
	Interval string
	Start    int64
	End      int64
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	BarsLoaded int
	Runs       []*domain.BacktestRun     // strategy order, failed strategies omitted
	Rows       []reporting.ComparisonRow // parallel to Runs
	Errors     []string
}

// Run loads the series once and backtests every configured strategy on it.
// A failing strategy is recorded in Errors and does not stop the others.
func (o *Orchestrator) Run(ctx context.Context, s Series) (*RunResult, error) {
	o.logger.Info("loading bars", zap.String("symbol", s.Symbol), zap.String("interval", s.Interval))
	bars, err := o.loadBars(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoBars, s.Symbol, s.Interval)
	}
	return o.RunBars(ctx, s, bars)
}

// RunBars compares strategies over already loaded bars.
func (o *Orchestrator) RunBars(ctx context.Context, s Series, bars []domain.PriceBar) (*RunResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoBars, s.Symbol, s.Interval)
	}
	result := &RunResult{BarsLoaded: len(bars)}

	for _, cfg := range o.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run, err := o.runner.RunBars(ctx, bars, backtest.RunRequest{
			Symbol:   s.Symbol,
			Interval: s.Interval,
			Strategy: cfg,
			Config:   o.config,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("backtest %s: %v", cfg.ID(), err))
			continue
		}
		result.Runs = append(result.Runs, run)
		result.Rows = append(result.Rows, reporting.RowFromRun(cfg.ID(), run))
	}

	o.logger.Info("comparison complete",
		zap.Int("bars", len(bars)),
		zap.Int("strategies", len(o.strategies)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (o *Orchestrator) loadBars(ctx context.Context, s Series) ([]domain.PriceBar, error) {
	if o.bars == nil {
		return nil, errors.New("orchestrator has no price bar store")
	}
	if s.Start == 0 && s.End == 0 {
		return o.bars.GetBySeries(ctx, s.Symbol, s.Interval)
	}
	return o.bars.GetByTimeRange(ctx, s.Symbol, s.Interval, s.Start, s.End)
}
