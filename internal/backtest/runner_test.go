package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/storage/memory"
)

func TestRunner_RunPersists(t *testing.T) {
	ctx := context.Background()
	bars := memory.NewPriceBarStore()
	runs := memory.NewBacktestRunStore()
	curves := memory.NewEquityCurveStore()

	require.NoError(t, bars.InsertBulk(ctx, "BTCUSDT", "1d", barsFromCloses(100, 110, 120, 90)))

	runner := NewRunner(RunnerOptions{
		Bars:    bars,
		Runs:    runs,
		Curves:  curves,
		Metrics: observability.NewMetrics(prometheus.NewRegistry(), "test"),
		Now:     func() time.Time { return time.UnixMilli(1704067200000) },
	})

	req := RunRequest{
		Symbol:   "BTCUSDT",
		Interval: "1d",
		Strategy: domain.StrategyConfig{Type: domain.StrategyTypeBuyAndHold},
		Config:   zeroCostConfig(10000),
	}
	run, err := runner.Run(ctx, req)
	require.NoError(t, err)

	assert.Len(t, run.RunID, 64)
	assert.Equal(t, "BUY_AND_HOLD", run.StrategyID)
	assert.Equal(t, int64(1704067200000), run.CreatedAt)
	assert.InDelta(t, 9000.0, run.Result.FinalEquity, 1e-9)

	stored, err := runs.GetByID(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Result.FinalEquity, stored.Result.FinalEquity)

	curve, err := curves.GetByRunID(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Result.EquityCurve, curve)

	// Identical inputs map to the same run
	again, err := runner.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, again.RunID)

	listed, err := runs.ListByStrategy(ctx, "BUY_AND_HOLD")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestRunner_TimeRange(t *testing.T) {
	ctx := context.Background()
	bars := memory.NewPriceBarStore()
	require.NoError(t, bars.InsertBulk(ctx, "ETHUSDT", "1d", barsFromCloses(100, 110, 120, 90)))

	runner := NewRunner(RunnerOptions{Bars: bars, Runs: memory.NewBacktestRunStore()})

	run, err := runner.Run(ctx, RunRequest{
		Symbol:   "ETHUSDT",
		Interval: "1d",
		Start:    0,
		End:      2 * day,
		Strategy: domain.StrategyConfig{Type: domain.StrategyTypeBuyAndHold},
		Config:   zeroCostConfig(10000),
	})
	require.NoError(t, err)
	assert.Len(t, run.Result.EquityCurve, 3)
	assert.InDelta(t, 12000.0, run.Result.FinalEquity, 1e-9)
}

func TestRunner_Errors(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(RunnerOptions{Bars: memory.NewPriceBarStore(), Runs: memory.NewBacktestRunStore()})

	_, err := runner.Run(ctx, RunRequest{
		Symbol:   "NONE",
		Interval: "1d",
		Strategy: domain.StrategyConfig{Type: domain.StrategyTypeBuyAndHold},
		Config:   DefaultConfig(),
	})
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = runner.RunBars(ctx, barsFromCloses(1, 2), RunRequest{
		Strategy: domain.StrategyConfig{Type: "momentum"},
		Config:   DefaultConfig(),
	})
	assert.Error(t, err)
}
