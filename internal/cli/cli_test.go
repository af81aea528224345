package cli

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"strataquant/internal/domain"
	"strataquant/internal/optimization"
	"strataquant/internal/storage/arrowfile"
	"strataquant/internal/storage/memory"
)

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := NewFlags(fs).WithEngine().WithStrategy().WithOptimization()
	require.NoError(t, fs.Parse(append([]string{"-env-file", filepath.Join(t.TempDir(), "none.env")}, args...)))
	return f
}

func TestFlags_Defaults(t *testing.T) {
	cfg, err := parse(t).Load()
	require.NoError(t, err)
	assert.Equal(t, 100000.0, cfg.Capital)
	assert.Equal(t, domain.StrategyTypeBuyAndHold, cfg.Strategy.Type)
	assert.Equal(t, "BTCUSDT", cfg.Data.Symbol)
}

func TestFlags_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capital: 5000\ncommission_bps: 3\n"), 0o644))

	cfg, err := parse(t,
		"-config", path,
		"-capital", "7000",
		"-strategy", "sma", "-fast", "10", "-slow", "30",
		"-stop-type", "atr", "-atr-multiplier", "3",
		"-position-sizing", "fixed-dollar", "-position-size", "2500",
		"-fast-range", "5-25",
	).Load()
	require.NoError(t, err)

	assert.Equal(t, 7000.0, cfg.Capital, "flag beats file")
	assert.Equal(t, 3.0, cfg.CommissionBps, "file beats default")
	assert.Equal(t, domain.StrategyTypeSMACrossover, cfg.Strategy.Type)
	assert.Equal(t, 10, cfg.Strategy.FastPeriod)
	assert.Equal(t, domain.StopTypeATR, cfg.StopLoss.Type)
	assert.Equal(t, 3.0, cfg.StopLoss.ATRMultiplier)
	assert.Equal(t, 2500.0, cfg.Sizing.Amount)
	assert.Equal(t, optimization.Range{Min: 5, Max: 25}, cfg.Optimization.FastRange)
}

func TestFlags_Invalid(t *testing.T) {
	_, err := parse(t, "-fast-range", "oops").Load()
	assert.Error(t, err)

	_, err = parse(t, "-stop-type", "bogus").Load()
	assert.Error(t, err)
}

func TestOpenStores_Memory(t *testing.T) {
	cfg, err := parse(t, "-use-memory").Load()
	require.NoError(t, err)

	stores, cleanup, err := OpenStores(context.Background(), cfg.Storage, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &memory.PriceBarStore{}, stores.Bars)
	assert.IsType(t, &memory.BacktestRunStore{}, stores.Runs)
}

func testBars() []domain.PriceBar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, 10)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = domain.PriceBar{
			Timestamp: base.AddDate(0, 0, i).UnixMilli(),
			Open:      p, High: p + 1, Low: p - 1, Close: p, Volume: 1,
		}
	}
	return bars
}

func TestLoadBars_ArrowFileWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.arrow")
	require.NoError(t, arrowfile.Save(path, testBars()))

	cfg, err := parse(t, "-data", path, "-start", "2024-01-03", "-end", "2024-01-05").Load()
	require.NoError(t, err)

	bars, err := LoadBars(context.Background(), cfg, memory.NewPriceBarStore())
	require.NoError(t, err)
	require.Len(t, bars, 3, "end date is inclusive")
	assert.Equal(t, 102.0, bars[0].Close)
}

func TestLoadBars_FallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPriceBarStore()
	require.NoError(t, store.InsertBulk(ctx, "BTCUSDT", "1d", testBars()))

	cfg, err := parse(t,
		"-data", filepath.Join(t.TempDir(), "missing.arrow"),
		"-start", "2024-01-01", "-end", "2024-01-10",
	).Load()
	require.NoError(t, err)

	bars, err := LoadBars(ctx, cfg, store)
	require.NoError(t, err)
	assert.Len(t, bars, 10)

	cfg.Data.Symbol = "ETHUSDT"
	_, err = LoadBars(ctx, cfg, store)
	assert.Error(t, err)
}
