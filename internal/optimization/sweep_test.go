package optimization

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/backtest"
	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/strategy"
)

func syntheticBars(n int) []domain.PriceBar {
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)*0.05 + 8*math.Sin(float64(i)/9) + 3*math.Sin(float64(i)/2.5)
		bars[i] = domain.PriceBar{
			Timestamp: int64(i) * 86400000,
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestCombinations(t *testing.T) {
	combos := Combinations(Range{20, 30}, Range{50, 60}, 10)
	assert.Equal(t, [][2]int{{20, 50}, {20, 60}, {30, 50}, {30, 60}}, combos)

	// fast >= slow pairs are dropped
	combos = Combinations(Range{10, 30}, Range{20, 30}, 10)
	assert.Equal(t, [][2]int{{10, 20}, {10, 30}, {20, 30}}, combos)

	assert.Empty(t, Combinations(Range{10, 20}, Range{30, 40}, 0))
}

func TestSweep_FourCombinationsReproducible(t *testing.T) {
	bars := syntheticBars(400)
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg, "test")

	sweep := NewSweep(bars, SweepConfig{Base: backtest.DefaultConfig(), Workers: 3, Metrics: m})
	results, err := sweep.Run(Range{20, 30}, Range{50, 60}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, r := range results {
		assert.Less(t, r.FastPeriod, r.SlowPeriod)

		// Standalone engine run with the same parameters matches the sweep row
		strat, err := strategy.NewSMACrossover(r.FastPeriod, r.SlowPeriod)
		require.NoError(t, err)
		engine, err := backtest.NewEngine(bars, backtest.DefaultConfig())
		require.NoError(t, err)
		solo := engine.Run(strat)

		assert.Equal(t, solo.TotalReturn, r.TotalReturn)
		assert.Equal(t, solo.SharpeRatio, r.SharpeRatio)
		assert.Equal(t, solo.MaxDrawdown, r.MaxDrawdown)
		assert.Equal(t, solo.TotalTrades, r.TotalTrades)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(m.SweepCombinations))
}

func TestSweep_WorkerCountDoesNotChangeResults(t *testing.T) {
	bars := syntheticBars(300)

	one, err := NewSweep(bars, SweepConfig{Base: backtest.DefaultConfig(), Workers: 1}).
		Run(Range{5, 25}, Range{20, 60}, 5)
	require.NoError(t, err)
	many, err := NewSweep(bars, SweepConfig{Base: backtest.DefaultConfig(), Workers: 8}).
		Run(Range{5, 25}, Range{20, 60}, 5)
	require.NoError(t, err)

	assert.Equal(t, one, many)
}

func TestSweep_InvalidBaseConfig(t *testing.T) {
	cfg := backtest.DefaultConfig()
	cfg.InitialCapital = -1

	_, err := NewSweep(syntheticBars(100), SweepConfig{Base: cfg, Workers: 2}).
		Run(Range{5, 15}, Range{20, 40}, 5)
	assert.ErrorIs(t, err, backtest.ErrInvalidCapital)
}

func TestFindBest(t *testing.T) {
	results := []domain.OptimizationResult{
		{FastPeriod: 10, SlowPeriod: 50, SharpeRatio: 1.2, TotalReturn: 0.3},
		{FastPeriod: 20, SlowPeriod: 50, SharpeRatio: 1.5, TotalReturn: 0.2},
		{FastPeriod: 30, SlowPeriod: 50, SharpeRatio: 1.5, TotalReturn: 0.4},
	}

	best, ok := FindBestSharpe(results)
	require.True(t, ok)
	assert.Equal(t, 20, best.FastPeriod, "ties go to the first encountered")

	best, ok = FindBestReturn(results)
	require.True(t, ok)
	assert.Equal(t, 30, best.FastPeriod)

	_, ok = FindBestSharpe(nil)
	assert.False(t, ok)
}

func TestTopBySharpe(t *testing.T) {
	results := []domain.OptimizationResult{
		{FastPeriod: 10, SharpeRatio: 0.5},
		{FastPeriod: 20, SharpeRatio: 1.5},
		{FastPeriod: 30, SharpeRatio: 1.0},
	}
	top := TopBySharpe(results, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 20, top[0].FastPeriod)
	assert.Equal(t, 30, top[1].FastPeriod)
	assert.Equal(t, 10, results[0].FastPeriod, "input is not reordered")
}
