package reporting

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/domain"
	"strataquant/internal/storage/memory"
)

func sampleResult() *domain.BacktestResult {
	trades := []domain.Trade{
		domain.NewTrade(1704067200000, 1704326400000, 100.05, 109.945, 99.85, 3, domain.ExitReasonSignal),
		domain.NewTrade(1704412800000, 1704499200000, 110, 99, 90, 1, domain.ExitReasonStopLoss),
	}
	return &domain.BacktestResult{
		InitialCapital: 10000,
		FinalEquity:    10012.5,
		TotalReturn:    0.00125,
		EquityCurve:    []float64{10000, 10100.25, 9950, 10012.5},
		TotalTrades:    2,
		SharpeRatio:    0.42,
		SortinoRatio:   999,
		CalmarRatio:    0.1,
		MaxDrawdown:    -0.0149,
		Trades:         trades,
		TradeStats:     &domain.TradeStats{TotalTrades: 2, WinningTrades: 1, LosingTrades: 1, WinRate: 0.5},
	}
}

func TestResultJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "backtest_result.json")
	want := sampleResult()

	require.NoError(t, SaveResultJSON(path, want))
	got, err := LoadResultJSON(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResultJSON_NonFiniteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "degenerate.json")
	r := sampleResult()
	r.SharpeRatio = math.NaN()
	r.CalmarRatio = math.Inf(-1)
	r.TradeStats.ProfitFactor = math.Inf(1)

	require.NoError(t, SaveResultJSON(path, r))
	got, err := LoadResultJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.SharpeRatio)
	assert.Equal(t, 0.0, got.CalmarRatio)
	assert.Equal(t, 0.0, got.TradeStats.ProfitFactor)
	assert.Equal(t, r.SortinoRatio, got.SortinoRatio)
	assert.Equal(t, r.EquityCurve, got.EquityCurve)

	// the caller's result is left untouched
	assert.True(t, math.IsNaN(r.SharpeRatio))
	assert.True(t, math.IsInf(r.TradeStats.ProfitFactor, 1))

	dir := t.TempDir()
	require.NoError(t, SaveOptimizationJSON(filepath.Join(dir, "opt.json"),
		[]domain.OptimizationResult{{FastPeriod: 5, SlowPeriod: 20, SharpeRatio: math.NaN()}}))
	require.NoError(t, SaveWalkForwardJSON(filepath.Join(dir, "wf.json"),
		&domain.WalkForwardResult{DegradationSharpe: math.Inf(1)}))
}

func TestResultJSON_OmitsEmptyTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	r := sampleResult()
	r.Trades = nil
	r.TradeStats = nil
	r.TotalTrades = 0

	require.NoError(t, SaveResultJSON(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"trades"`)
	assert.NotContains(t, string(data), `"trade_stats"`)
	assert.Contains(t, string(data), `"equity_curve"`)
}

func TestWriteEquityCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEquityCSV(&buf, []float64{10000, 10100.25, 9950}))
	assert.Equal(t, "bar,equity\n0,10000\n1,10100.25\n2,9950\n", buf.String())
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, sampleResult().Trades[1:]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "trade_num,entry_timestamp,exit_timestamp,entry_price,exit_price,position_size,pnl,pnl_pct,duration_days,is_win", lines[0])
	assert.Equal(t, "1,1704412800000,1704499200000,110.00,99.00,90.00000000,-990.00,-10.0000,1.0,false", lines[1])
}

func TestSaveTradesCSV_NoTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, SaveTradesCSV(path, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteOptimizationCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOptimizationCSV(&buf, []domain.OptimizationResult{
		{FastPeriod: 20, SlowPeriod: 50, TotalReturn: 0.25, SharpeRatio: 1.1, MaxDrawdown: -0.12, TotalTrades: 9},
	}))
	assert.Equal(t,
		"fast_period,slow_period,total_return,sharpe_ratio,max_drawdown,total_trades\n"+
			"20,50,0.250000,1.100000,-0.120000,9\n",
		buf.String())
}

func TestRenderComparisonMarkdown(t *testing.T) {
	r := &Report{
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Symbol:      "BTCUSDT",
		Interval:    "1d",
		Rows: []ComparisonRow{
			{Name: "BUY_AND_HOLD", TotalReturn: 0.5, SharpeRatio: 1.234, MaxDrawdown: -0.3, TotalTrades: 1},
		},
		Missing: []string{"SMA_20_50"},
	}
	md := RenderComparisonMarkdown(r)

	assert.Contains(t, md, "Generated: 2024-01-02T03:04:05Z")
	assert.Contains(t, md, "| BUY_AND_HOLD | 50.00 | 1.23 | -30.00 | 1 |")
	assert.Contains(t, md, "- SMA_20_50")
}

func TestRenderComparisonTable(t *testing.T) {
	out := RenderComparisonTable([]ComparisonRow{{Name: "SMA 50/200", TotalReturn: 0.1, SharpeRatio: 0.5, MaxDrawdown: -0.2, TotalTrades: 4}})
	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Strategy"))
	assert.Equal(t, strings.Repeat("=", 72), lines[1])
	assert.Contains(t, lines[2], "10.00%")
	assert.Contains(t, lines[2], "-20.00%")
}

func TestRenderWalkForwardMarkdown(t *testing.T) {
	wf := &domain.WalkForwardResult{
		TrainSize: 700, TestSize: 300, BestFastPeriod: 30, BestSlowPeriod: 90,
		InSampleSharpe: 1.2, OutOfSampleSharpe: 0.3, DegradationSharpe: 75,
	}
	md := RenderWalkForwardMarkdown(wf, true)
	assert.Contains(t, md, "Train bars: 700 | Test bars: 300")
	assert.Contains(t, md, "SMA 30/90")
	assert.Contains(t, md, "| Sharpe | 1.20 | 0.30 | 75.00 |")
	assert.Contains(t, md, "**Warning:**")

	assert.NotContains(t, RenderWalkForwardMarkdown(wf, false), "Warning")
}

func TestRenderSweepMarkdown(t *testing.T) {
	md := RenderSweepMarkdown([]domain.OptimizationResult{
		{FastPeriod: 20, SlowPeriod: 50, SharpeRatio: 1.5, TotalReturn: 0.4},
	}, 12)
	assert.Contains(t, md, "Combinations tested: 12")
	assert.Contains(t, md, "| 1 | 20 | 50 | 40.00 | 1.50 |")
}

func TestGenerator_LatestRunPerStrategy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBacktestRunStore()

	older := &domain.BacktestRun{RunID: "a", StrategyID: "SMA_20_50", Symbol: "BTCUSDT", Interval: "1d", CreatedAt: 1, Result: sampleResult()}
	newer := &domain.BacktestRun{RunID: "b", StrategyID: "SMA_20_50", Symbol: "BTCUSDT", Interval: "1d", CreatedAt: 2, Result: sampleResult()}
	newer.Result.TotalReturn = 0.9
	otherSeries := &domain.BacktestRun{RunID: "c", StrategyID: "SMA_20_50", Symbol: "ETHUSDT", Interval: "1d", CreatedAt: 3, Result: sampleResult()}
	for _, run := range []*domain.BacktestRun{older, newer, otherSeries} {
		require.NoError(t, store.Insert(ctx, run))
	}

	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	report, err := NewGenerator(store).
		WithClock(func() time.Time { return fixed }).
		Generate(ctx, "BTCUSDT", "1d", []string{"SMA_20_50", "BUY_AND_HOLD"})
	require.NoError(t, err)

	assert.Equal(t, fixed, report.GeneratedAt)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "b", report.Rows[0].RunID)
	assert.Equal(t, 0.9, report.Rows[0].TotalReturn)
	assert.Equal(t, []string{"BUY_AND_HOLD"}, report.Missing)
}
