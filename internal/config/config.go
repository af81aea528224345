// Package config loads run configuration from YAML, environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"strataquant/internal/backtest"
	"strataquant/internal/domain"
	"strataquant/internal/execution"
	"strataquant/internal/optimization"
	"strataquant/internal/risk"
	"strataquant/internal/strategy"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STRATAQUANT_"

// DateLayout is the format of data.start and data.end.
const DateLayout = "2006-01-02"

// Risk limit presets.
const (
	PresetNone         = "none"
	PresetDefault      = "default"
	PresetConservative = "conservative"
	PresetAggressive   = "aggressive"
	PresetCustom       = "custom"
)

// DisabledDrawdownPct leaves the drawdown breaker off when preset is none.
const DisabledDrawdownPct = 50.0

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidRange  = errors.New("invalid range: expected min-max")
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Capital        float64 `yaml:"capital"`
	CommissionBps  float64 `yaml:"commission_bps"`
	SlippageBps    float64 `yaml:"slippage_bps"`
	PeriodsPerYear float64 `yaml:"periods_per_year"`

	Strategy     domain.StrategyConfig `yaml:"strategy"`
	StopLoss     domain.StopLossConfig `yaml:"stop_loss"`
	Sizing       domain.SizingConfig   `yaml:"position_sizing"`
	RiskLimits   RiskLimitsConfig      `yaml:"risk_limits"`
	Optimization OptimizationConfig    `yaml:"optimization"`
	Data         DataConfig            `yaml:"data"`
	Storage      StorageConfig         `yaml:"storage"`
	Log          LogConfig             `yaml:"log"`
}

// RiskLimitsConfig picks a preset. MaxDrawdownPct below 50 arms the
// drawdown breaker on top of the preset (or on default limits for none).
// Custom reads Limits verbatim.
type RiskLimitsConfig struct {
	Preset         string      `yaml:"preset"`
	MaxDrawdownPct float64     `yaml:"max_drawdown_pct"`
	Custom         risk.Limits `yaml:"custom"`
}

type OptimizationConfig struct {
	FastRange  optimization.Range `yaml:"fast_range"`
	SlowRange  optimization.Range `yaml:"slow_range"`
	Step       int                `yaml:"step"`
	TrainRatio float64            `yaml:"train_ratio"`
	Workers    int                `yaml:"workers"`
	TopN       int                `yaml:"top_n"`
}

type DataConfig struct {
	Symbol    string `yaml:"symbol"`
	Interval  string `yaml:"interval"`
	ArrowFile string `yaml:"arrow_file"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
	OutputDir string `yaml:"output_dir"`
}

type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	SQLitePath    string `yaml:"sqlite_path"`
	UseMemory     bool   `yaml:"use_memory"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the command-line defaults.
func Default() *Config {
	return &Config{
		Capital:        backtest.DefaultInitialCapital,
		CommissionBps:  backtest.DefaultCommissionBps,
		SlippageBps:    backtest.DefaultSlippageBps,
		PeriodsPerYear: backtest.DefaultPeriodsPerYear,
		Strategy: domain.StrategyConfig{
			Type:       domain.StrategyTypeBuyAndHold,
			FastPeriod: 50,
			SlowPeriod: 200,
		},
		StopLoss: domain.StopLossConfig{
			Type:          domain.StopTypeNone,
			Percent:       10,
			ATRMultiplier: 2,
			ATRPeriod:     14,
			MaxBars:       100,
		},
		Sizing: domain.SizingConfig{
			Type:    domain.SizingFixedPercent,
			Amount:  100,
			Percent: 100,
		},
		RiskLimits: RiskLimitsConfig{
			Preset:         PresetNone,
			MaxDrawdownPct: DisabledDrawdownPct,
			Custom:         risk.DefaultLimits(),
		},
		Optimization: OptimizationConfig{
			FastRange:  optimization.DefaultFastRange,
			SlowRange:  optimization.DefaultSlowRange,
			Step:       optimization.DefaultStep,
			TrainRatio: 0.7,
			TopN:       10,
		},
		Data: DataConfig{
			Symbol:    "BTCUSDT",
			Interval:  "1d",
			ArrowFile: "data/btc_1d.arrow",
			Start:     "2019-09-08",
			End:       "2024-12-22",
			OutputDir: "results",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path and overlays it on Default. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// LoadDotEnv loads .env files into the process environment. Missing
// files are skipped; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays STRATAQUANT_* variables.
func (c *Config) ApplyEnv() error {
	floats := map[string]*float64{
		"CAPITAL":        &c.Capital,
		"COMMISSION_BPS": &c.CommissionBps,
		"SLIPPAGE_BPS":   &c.SlippageBps,
	}
	for name, dst := range floats {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, name, v)
			}
			*dst = f
		}
	}

	strs := map[string]*string{
		"SYMBOL":         &c.Data.Symbol,
		"INTERVAL":       &c.Data.Interval,
		"ARROW_FILE":     &c.Data.ArrowFile,
		"OUTPUT_DIR":     &c.Data.OutputDir,
		"POSTGRES_DSN":   &c.Storage.PostgresDSN,
		"CLICKHOUSE_DSN": &c.Storage.ClickHouseDSN,
		"SQLITE_PATH":    &c.Storage.SQLitePath,
		"LOG_LEVEL":      &c.Log.Level,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sWORKERS=%q", ErrInvalidConfig, EnvPrefix, v)
		}
		c.Optimization.Workers = n
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	switch c.RiskLimits.Preset {
	case "", PresetNone, PresetDefault, PresetConservative, PresetAggressive, PresetCustom:
	default:
		return fmt.Errorf("%w: unknown risk preset %q", ErrInvalidConfig, c.RiskLimits.Preset)
	}
	if r := c.Optimization.TrainRatio; r <= 0 || r >= 1 {
		return fmt.Errorf("%w: train_ratio %v", ErrInvalidConfig, r)
	}
	if c.Optimization.Step <= 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidConfig, c.Optimization.Step)
	}
	for name, r := range map[string]optimization.Range{"fast_range": c.Optimization.FastRange, "slow_range": c.Optimization.SlowRange} {
		if r.Min <= 0 || r.Min > r.Max {
			return fmt.Errorf("%w: %s %d-%d", ErrInvalidConfig, name, r.Min, r.Max)
		}
	}
	start, end, err := c.Data.Window()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("%w: data.start %s not before data.end %s", ErrInvalidConfig, c.Data.Start, c.Data.End)
	}
	if _, err := strategy.FromConfig(c.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.BacktestConfig(); err != nil {
		return err
	}
	return nil
}

// Limits resolves the risk section. nil means no gating.
func (r RiskLimitsConfig) Limits() *risk.Limits {
	var l risk.Limits
	switch r.Preset {
	case PresetDefault:
		l = risk.DefaultLimits()
	case PresetConservative:
		l = risk.ConservativeLimits()
	case PresetAggressive:
		l = risk.AggressiveLimits()
	case PresetCustom:
		l = r.Custom
		return &l
	default:
		if r.MaxDrawdownPct <= 0 || r.MaxDrawdownPct >= DisabledDrawdownPct {
			return nil
		}
		l = risk.DefaultLimits()
	}
	if r.MaxDrawdownPct > 0 && r.MaxDrawdownPct < DisabledDrawdownPct {
		l.MaxDrawdownThreshold = r.MaxDrawdownPct / 100
	}
	return &l
}

// BacktestConfig converts the file into an engine config.
func (c *Config) BacktestConfig() (backtest.Config, error) {
	bc := backtest.Config{
		InitialCapital: c.Capital,
		Execution:      execution.NewModel(c.CommissionBps, c.SlippageBps),
		StopLoss:       c.StopLoss,
		Sizing:         c.Sizing,
		RiskLimits:     c.RiskLimits.Limits(),
		PeriodsPerYear: c.PeriodsPerYear,
	}
	if err := bc.Validate(); err != nil {
		return backtest.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return bc, nil
}

// Window parses Start and End. Empty values yield zero times.
func (d DataConfig) Window() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = time.Parse(DateLayout, d.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: data.start %q", ErrInvalidConfig, d.Start)
		}
	}
	if d.End != "" {
		if end, err = time.Parse(DateLayout, d.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: data.end %q", ErrInvalidConfig, d.End)
		}
	}
	return start, end, nil
}

// ParseRange parses "min-max", e.g. "20-100".
func ParseRange(s string) (optimization.Range, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return optimization.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return optimization.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return optimization.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return optimization.Range{Min: lo, Max: hi}, nil
}
