package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"strataquant/internal/cli"
	"strataquant/internal/observability"
	"strataquant/internal/optimization"
	"strataquant/internal/reporting"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine).WithEngine().WithOptimization()
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cli.Logger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := cli.SignalContext()
	defer cancel()

	stores, closeStores, err := cli.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer closeStores()

	engineCfg, err := cfg.BacktestConfig()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}
	bars, err := cli.LoadBars(ctx, cfg, stores.Bars)
	if err != nil {
		logger.Fatal("load bars", zap.Error(err))
	}

	opt := cfg.Optimization
	wf := optimization.NewWalkForward(bars, optimization.WalkForwardConfig{
		Base:      engineCfg,
		FastRange: opt.FastRange,
		SlowRange: opt.SlowRange,
		Step:      opt.Step,
		Workers:   opt.Workers,
		Logger:    logger,
		Metrics:   observability.DefaultMetrics,
	})
	result, err := wf.Run(opt.TrainRatio)
	if err != nil {
		logger.Fatal("walk-forward", zap.Error(err))
	}

	overfit := optimization.Overfit(result)
	fmt.Print(reporting.RenderWalkForwardMarkdown(result, overfit))
	if overfit {
		logger.Warn("out-of-sample Sharpe degraded beyond threshold, parameters are likely overfit",
			zap.Float64("degradation_sharpe_pct", result.DegradationSharpe),
			zap.Float64("threshold_pct", optimization.OverfitWarningThreshold),
		)
	}

	if err := cli.EnsureDir(cfg.Data.OutputDir); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}
	path := filepath.Join(cfg.Data.OutputDir, "walkforward.json")
	if err := reporting.SaveWalkForwardJSON(path, result); err != nil {
		logger.Fatal("write result", zap.Error(err))
	}
	fmt.Printf("\nResult written to %s\n", path)
}
