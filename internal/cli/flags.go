// Package cli holds the flag, config and store wiring shared by the binaries.
package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"strataquant/internal/config"
	"strataquant/internal/observability"
)

// Flags binds command-line flags onto a config. Only flags the user set
// override the file and environment.
type Flags struct {
	fs *flag.FlagSet

	configPath *string
	envFile    *string

	// data and storage
	symbol        *string
	interval      *string
	arrowFile     *string
	start         *string
	end           *string
	outputDir     *string
	postgresDSN   *string
	clickhouseDSN *string
	sqlitePath    *string
	useMemory     *bool
	logLevel      *string

	// engine
	capital        *float64
	commission     *float64
	slippage       *float64
	stopType       *string
	stopPct        *float64
	atrMultiplier  *float64
	atrPeriod      *int
	timeLimit      *int
	sizing         *string
	positionSize   *float64
	maxDrawdown    *float64
	riskPreset     *string
	periodsPerYear *float64

	// strategy
	strategy *string
	fast     *int
	slow     *int

	// optimization
	fastRange  *string
	slowRange  *string
	step       *int
	trainRatio *float64
	workers    *int
	topN       *int
}

// NewFlags registers the data, storage and logging flags on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	d := config.Default()
	f := &Flags{fs: fs}
	f.configPath = fs.String("config", "", "YAML run file")
	f.envFile = fs.String("env-file", ".env", "Environment file loaded if present")

	f.symbol = fs.String("symbol", d.Data.Symbol, "Trading pair")
	f.interval = fs.String("interval", d.Data.Interval, "Bar interval (1d, 1h, 5m, 1m)")
	f.arrowFile = fs.String("data", d.Data.ArrowFile, "Arrow IPC bar file")
	f.start = fs.String("start", d.Data.Start, "Start date (YYYY-MM-DD)")
	f.end = fs.String("end", d.Data.End, "End date (YYYY-MM-DD)")
	f.outputDir = fs.String("output-dir", d.Data.OutputDir, "Directory for result files")
	f.postgresDSN = fs.String("postgres-dsn", "", "PostgreSQL connection string")
	f.clickhouseDSN = fs.String("clickhouse-dsn", "", "ClickHouse connection string")
	f.sqlitePath = fs.String("sqlite-path", "", "SQLite file for runs (when no postgres)")
	f.useMemory = fs.Bool("use-memory", false, "Use in-memory storage")
	f.logLevel = fs.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	return f
}

// WithEngine registers capital, cost, stop, sizing and risk flags.
func (f *Flags) WithEngine() *Flags {
	d := config.Default()
	f.capital = f.fs.Float64("capital", d.Capital, "Initial capital in USD")
	f.commission = f.fs.Float64("commission", d.CommissionBps, "Commission in basis points")
	f.slippage = f.fs.Float64("slippage", d.SlippageBps, "Slippage in basis points")
	f.stopType = f.fs.String("stop-type", d.StopLoss.Type, "Stop loss type: none, fixed, trailing, atr, time")
	f.stopPct = f.fs.Float64("stop-pct", d.StopLoss.Percent, "Stop loss percentage (fixed/trailing)")
	f.atrMultiplier = f.fs.Float64("atr-multiplier", d.StopLoss.ATRMultiplier, "ATR multiplier (atr stop)")
	f.atrPeriod = f.fs.Int("atr-period", d.StopLoss.ATRPeriod, "ATR period (atr stop)")
	f.timeLimit = f.fs.Int("time-limit", d.StopLoss.MaxBars, "Time limit in bars (time stop)")
	f.sizing = f.fs.String("position-sizing", d.Sizing.Type, "Position sizing: fixed-pct, fixed-dollar, kelly, half-kelly, fixed-fractional")
	f.positionSize = f.fs.Float64("position-size", d.Sizing.Percent, "Position size (percent or dollars depending on method)")
	f.maxDrawdown = f.fs.Float64("max-drawdown", d.RiskLimits.MaxDrawdownPct, "Stop trading below -X% drawdown (50 disables)")
	f.riskPreset = f.fs.String("risk-preset", d.RiskLimits.Preset, "Risk limits: none, default, conservative, aggressive")
	f.periodsPerYear = f.fs.Float64("periods-per-year", d.PeriodsPerYear, "Bars per year for annualization")
	return f
}

// WithStrategy registers the strategy selection flags.
func (f *Flags) WithStrategy() *Flags {
	d := config.Default()
	f.strategy = f.fs.String("strategy", d.Strategy.Type, "Strategy: buy-and-hold, sma-crossover")
	f.fast = f.fs.Int("fast", d.Strategy.FastPeriod, "Fast SMA period")
	f.slow = f.fs.Int("slow", d.Strategy.SlowPeriod, "Slow SMA period")
	return f
}

// WithOptimization registers the grid and walk-forward flags.
func (f *Flags) WithOptimization() *Flags {
	d := config.Default()
	f.fastRange = f.fs.String("fast-range", "20-100", "Fast period range (min-max)")
	f.slowRange = f.fs.String("slow-range", "50-200", "Slow period range (min-max)")
	f.step = f.fs.Int("step", d.Optimization.Step, "Grid step")
	f.trainRatio = f.fs.Float64("train-ratio", d.Optimization.TrainRatio, "Training fraction for walk-forward")
	f.workers = f.fs.Int("workers", 0, "Sweep workers (0 = all CPUs)")
	f.topN = f.fs.Int("top", d.Optimization.TopN, "Results to print")
	return f
}

// Load resolves the config: defaults, then the YAML file, then the
// environment (after the env file), then explicitly set flags.
func (f *Flags) Load() (*config.Config, error) {
	if err := config.LoadDotEnv(*f.envFile); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if *f.configPath != "" {
		var err error
		if cfg, err = config.Load(*f.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	var parseErr error
	f.fs.Visit(func(fl *flag.Flag) {
		if parseErr == nil {
			parseErr = f.apply(cfg, fl.Name)
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *config.Config, name string) error {
	switch name {
	case "symbol":
		cfg.Data.Symbol = *f.symbol
	case "interval":
		cfg.Data.Interval = *f.interval
	case "data":
		cfg.Data.ArrowFile = *f.arrowFile
	case "start":
		cfg.Data.Start = *f.start
	case "end":
		cfg.Data.End = *f.end
	case "output-dir":
		cfg.Data.OutputDir = *f.outputDir
	case "postgres-dsn":
		cfg.Storage.PostgresDSN = *f.postgresDSN
	case "clickhouse-dsn":
		cfg.Storage.ClickHouseDSN = *f.clickhouseDSN
	case "sqlite-path":
		cfg.Storage.SQLitePath = *f.sqlitePath
	case "use-memory":
		cfg.Storage.UseMemory = *f.useMemory
	case "log-level":
		cfg.Log.Level = *f.logLevel
	case "capital":
		cfg.Capital = *f.capital
	case "commission":
		cfg.CommissionBps = *f.commission
	case "slippage":
		cfg.SlippageBps = *f.slippage
	case "stop-type":
		cfg.StopLoss.Type = *f.stopType
	case "stop-pct":
		cfg.StopLoss.Percent = *f.stopPct
	case "atr-multiplier":
		cfg.StopLoss.ATRMultiplier = *f.atrMultiplier
	case "atr-period":
		cfg.StopLoss.ATRPeriod = *f.atrPeriod
	case "time-limit":
		cfg.StopLoss.MaxBars = *f.timeLimit
	case "position-sizing":
		cfg.Sizing.Type = *f.sizing
	case "position-size":
		// One flag feeds whichever field the method reads.
		cfg.Sizing.Percent = *f.positionSize
		cfg.Sizing.Amount = *f.positionSize
		cfg.Sizing.RiskPerTrade = *f.positionSize
	case "max-drawdown":
		cfg.RiskLimits.MaxDrawdownPct = *f.maxDrawdown
	case "risk-preset":
		cfg.RiskLimits.Preset = *f.riskPreset
	case "periods-per-year":
		cfg.PeriodsPerYear = *f.periodsPerYear
	case "strategy":
		cfg.Strategy.Type = normalizeStrategy(*f.strategy)
	case "fast":
		cfg.Strategy.FastPeriod = *f.fast
	case "slow":
		cfg.Strategy.SlowPeriod = *f.slow
	case "fast-range":
		r, err := config.ParseRange(*f.fastRange)
		if err != nil {
			return err
		}
		cfg.Optimization.FastRange = r
	case "slow-range":
		r, err := config.ParseRange(*f.slowRange)
		if err != nil {
			return err
		}
		cfg.Optimization.SlowRange = r
	case "step":
		cfg.Optimization.Step = *f.step
	case "train-ratio":
		cfg.Optimization.TrainRatio = *f.trainRatio
	case "workers":
		cfg.Optimization.Workers = *f.workers
	case "top":
		cfg.Optimization.TopN = *f.topN
	}
	return nil
}

// normalizeStrategy accepts "sma" as shorthand for the crossover.
func normalizeStrategy(s string) string {
	if s == "sma" {
		return "sma-crossover"
	}
	return s
}

// Logger builds the process logger from the config.
func Logger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Log.Level, cfg.Log.Development)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
