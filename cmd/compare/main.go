package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/cli"
	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/orchestrator"
	"strataquant/internal/plotting"
	"strataquant/internal/reporting"
	"strataquant/internal/strategy"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine).WithEngine()
	fromStore := flag.Bool("from-store", false, "Report the latest stored run per strategy instead of running")
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

	if err := cli.EnsureDir(cfg.Data.OutputDir); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}
	reportPath := filepath.Join(cfg.Data.OutputDir, "COMPARISON.md")
	strategies := strategy.DefaultComparisonSet()

	if *fromStore {
		ids := make([]string, len(strategies))
		for i, s := range strategies {
			ids[i] = s.ID()
		}
		report, err := reporting.NewGenerator(stores.Runs).Generate(ctx, cfg.Data.Symbol, cfg.Data.Interval, ids)
		if err != nil {
			logger.Fatal("generate report", zap.Error(err))
		}
		fmt.Print(reporting.RenderComparisonTable(report.Rows))
		writeReport(logger, reportPath, report)
		return
	}

	engineCfg, err := cfg.BacktestConfig()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}
	bars, err := cli.LoadBars(ctx, cfg, stores.Bars)
	if err != nil {
		logger.Fatal("load bars", zap.Error(err))
	}

	orch := orchestrator.New(orchestrator.Options{
		Bars:       stores.Bars,
		Runs:       stores.Runs,
		Curves:     stores.Curves,
		Metrics:    observability.DefaultMetrics,
		Logger:     logger,
		Strategies: strategies,
		Config:     engineCfg,
	})
	series := orchestrator.Series{Symbol: cfg.Data.Symbol, Interval: cfg.Data.Interval}
	result, err := orch.RunBars(ctx, series, bars)
	if err != nil {
		logger.Fatal("compare", zap.Error(err))
	}
	for _, e := range result.Errors {
		logger.Warn("strategy failed", zap.String("error", e))
	}

	fmt.Print(reporting.RenderComparisonTable(result.Rows))
	writeReport(logger, reportPath, &reporting.Report{
		GeneratedAt: time.Now().UTC(),
		Symbol:      cfg.Data.Symbol,
		Interval:    cfg.Data.Interval,
		Rows:        result.Rows,
	})

	names := make([]string, len(result.Runs))
	curves := make([][]float64, len(result.Runs))
	for i, run := range result.Runs {
		names[i] = result.Rows[i].Name
		curves[i] = run.Result.EquityCurve
	}
	if png, err := plotting.ComparisonChart(chartTitle(cfg.Data.Symbol, bars), names, curves); err != nil {
		logger.Warn("comparison chart", zap.Error(err))
	} else if err := plotting.Save(filepath.Join(cfg.Data.OutputDir, "comparison.png"), png); err != nil {
		logger.Warn("save chart", zap.Error(err))
	}
}

func writeReport(logger *zap.Logger, path string, report *reporting.Report) {
	if err := os.WriteFile(path, []byte(reporting.RenderComparisonMarkdown(report)), 0o644); err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
	fmt.Printf("\nReport written to %s\n", path)
}

func chartTitle(symbol string, bars []domain.PriceBar) string {
	first := time.UnixMilli(bars[0].Timestamp).UTC().Format("2006-01-02")
	last := time.UnixMilli(bars[len(bars)-1].Timestamp).UTC().Format("2006-01-02")
	return fmt.Sprintf("%s strategy comparison %s to %s", symbol, first, last)
}
