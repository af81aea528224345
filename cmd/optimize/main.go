package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"strataquant/internal/cli"
	"strataquant/internal/idhash"
	"strataquant/internal/observability"
	"strataquant/internal/optimization"
	"strataquant/internal/reporting"
	"strataquant/internal/storage"
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
	sweep := optimization.NewSweep(bars, optimization.SweepConfig{
		Base:    engineCfg,
		Workers: opt.Workers,
		Logger:  logger,
		Metrics: observability.DefaultMetrics,
	})
	results, err := sweep.Run(opt.FastRange, opt.SlowRange, opt.Step)
	if err != nil {
		logger.Fatal("sweep", zap.Error(err))
	}
	if len(results) == 0 {
		logger.Fatal("no valid parameter combinations",
			zap.Int("fast_min", opt.FastRange.Min), zap.Int("slow_max", opt.SlowRange.Max))
	}

	fmt.Print(reporting.RenderSweepMarkdown(optimization.TopBySharpe(results, opt.TopN), len(results)))
	if best, ok := optimization.FindBestSharpe(results); ok {
		fmt.Printf("\nBest by Sharpe: SMA(%d/%d) sharpe %.3f return %.2f%%\n",
			best.FastPeriod, best.SlowPeriod, best.SharpeRatio, best.TotalReturn*100)
	}
	if best, ok := optimization.FindBestReturn(results); ok {
		fmt.Printf("Best by return: SMA(%d/%d) sharpe %.3f return %.2f%%\n",
			best.FastPeriod, best.SlowPeriod, best.SharpeRatio, best.TotalReturn*100)
	}

	sweepID := idhash.ComputeSweepID(cfg.Data.Symbol, cfg.Data.Interval,
		opt.FastRange.Min, opt.FastRange.Max, opt.SlowRange.Min, opt.SlowRange.Max, opt.Step, len(bars), engineCfg.Key())
	switch err := stores.Sweeps.InsertBulk(ctx, sweepID, results); {
	case errors.Is(err, storage.ErrDuplicateKey):
		logger.Info("sweep already stored", zap.String("sweep_id", sweepID))
	case err != nil:
		logger.Warn("store sweep", zap.Error(err))
	default:
		logger.Info("sweep stored", zap.String("sweep_id", sweepID))
	}

	if err := cli.EnsureDir(cfg.Data.OutputDir); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}
	base := filepath.Join(cfg.Data.OutputDir, "optimization")
	if err := reporting.SaveOptimizationJSON(base+".json", results); err != nil {
		logger.Fatal("write results", zap.Error(err))
	}
	if err := reporting.SaveOptimizationCSV(base+".csv", results); err != nil {
		logger.Fatal("write results", zap.Error(err))
	}
	fmt.Printf("\nResults written to %s.{json,csv}\n", base)
}
