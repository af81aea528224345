package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/domain"
	"strataquant/internal/optimization"
	"strataquant/internal/risk"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	bc, err := c.BacktestConfig()
	require.NoError(t, err)
	assert.Equal(t, 100000.0, bc.InitialCapital)
	assert.Equal(t, 10.0, bc.Execution.CommissionBps)
	assert.Equal(t, 5.0, bc.Execution.SlippageBps)
	assert.Nil(t, bc.RiskLimits)
	assert.Equal(t, domain.StopTypeNone, bc.StopLoss.Type)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, "run.yaml", `
capital: 50000
strategy:
  type: sma-crossover
  fast_period: 20
stop_loss:
  type: trailing
  percent: 7.5
risk_limits:
  preset: conservative
optimization:
  fast_range: {min: 10, max: 30}
data:
  symbol: ETHUSDT
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 50000.0, c.Capital)
	assert.Equal(t, 10.0, c.CommissionBps, "missing keys keep defaults")
	assert.Equal(t, domain.StrategyTypeSMACrossover, c.Strategy.Type)
	assert.Equal(t, 20, c.Strategy.FastPeriod)
	assert.Equal(t, 200, c.Strategy.SlowPeriod)
	assert.Equal(t, 7.5, c.StopLoss.Percent)
	assert.Equal(t, 14, c.StopLoss.ATRPeriod)
	assert.Equal(t, optimization.Range{Min: 10, Max: 30}, c.Optimization.FastRange)
	assert.Equal(t, optimization.DefaultSlowRange, c.Optimization.SlowRange)
	assert.Equal(t, "ETHUSDT", c.Data.Symbol)
	assert.Equal(t, "1d", c.Data.Interval)

	bc, err := c.BacktestConfig()
	require.NoError(t, err)
	require.NotNil(t, bc.RiskLimits)
	assert.Equal(t, risk.ConservativeLimits(), *bc.RiskLimits)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "capital: [1, 2"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STRATAQUANT_CAPITAL", "2500")
	t.Setenv("STRATAQUANT_SYMBOL", "SOLUSDT")
	t.Setenv("STRATAQUANT_POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("STRATAQUANT_WORKERS", "3")

	c := Default()
	require.NoError(t, c.ApplyEnv())
	assert.Equal(t, 2500.0, c.Capital)
	assert.Equal(t, "SOLUSDT", c.Data.Symbol)
	assert.Equal(t, "postgres://u:p@localhost/db", c.Storage.PostgresDSN)
	assert.Equal(t, 3, c.Optimization.Workers)

	t.Setenv("STRATAQUANT_SLIPPAGE_BPS", "lots")
	assert.ErrorIs(t, c.ApplyEnv(), ErrInvalidConfig)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "STRATAQUANT_DOTENV_PROBE=from-file\n")
	t.Setenv("STRATAQUANT_DOTENV_PROBE", "")
	os.Unsetenv("STRATAQUANT_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "from-file", os.Getenv("STRATAQUANT_DOTENV_PROBE"))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"non-positive capital", func(c *Config) { c.Capital = 0 }},
		{"negative commission", func(c *Config) { c.CommissionBps = -1 }},
		{"unknown preset", func(c *Config) { c.RiskLimits.Preset = "yolo" }},
		{"train ratio 1", func(c *Config) { c.Optimization.TrainRatio = 1 }},
		{"zero step", func(c *Config) { c.Optimization.Step = 0 }},
		{"inverted range", func(c *Config) { c.Optimization.FastRange = optimization.Range{Min: 50, Max: 10} }},
		{"bad date", func(c *Config) { c.Data.Start = "2020/01/01" }},
		{"start after end", func(c *Config) { c.Data.Start, c.Data.End = "2024-01-02", "2024-01-01" }},
		{"bad sma periods", func(c *Config) {
			c.Strategy = domain.StrategyConfig{Type: domain.StrategyTypeSMACrossover, FastPeriod: 200, SlowPeriod: 50}
		}},
		{"unknown stop", func(c *Config) { c.StopLoss.Type = "magic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRiskLimitsConfig_Limits(t *testing.T) {
	assert.Nil(t, RiskLimitsConfig{Preset: PresetNone, MaxDrawdownPct: 50}.Limits())
	assert.Nil(t, RiskLimitsConfig{}.Limits())

	l := RiskLimitsConfig{Preset: PresetNone, MaxDrawdownPct: 25}.Limits()
	require.NotNil(t, l)
	assert.Equal(t, 0.25, l.MaxDrawdownThreshold)
	assert.Equal(t, risk.DefaultLimits().MaxPositionPct, l.MaxPositionPct)

	l = RiskLimitsConfig{Preset: PresetAggressive, MaxDrawdownPct: 50}.Limits()
	require.NotNil(t, l)
	assert.Equal(t, risk.AggressiveLimits(), *l)

	custom := risk.Limits{MaxPositionPct: 10, MaxPortfolioHeat: 0.1, MaxDrawdownThreshold: 0.05, MaxConcurrentPositions: 1}
	l = RiskLimitsConfig{Preset: PresetCustom, MaxDrawdownPct: 10, Custom: custom}.Limits()
	require.NotNil(t, l)
	assert.Equal(t, custom, *l)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("20-100")
	require.NoError(t, err)
	assert.Equal(t, optimization.Range{Min: 20, Max: 100}, r)

	for _, bad := range []string{"20", "a-b", "1-2-3", ""} {
		_, err := ParseRange(bad)
		assert.ErrorIs(t, err, ErrInvalidRange, bad)
	}
}
