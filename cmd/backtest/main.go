package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/backtest"
	"strataquant/internal/cli"
	"strataquant/internal/observability"
	"strataquant/internal/plotting"
	"strataquant/internal/reporting"
	"strataquant/internal/risk"
	"strataquant/internal/strategy"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine).WithEngine().WithStrategy()
	quiet := flag.Bool("quiet", false, "Skip the summary printout")
	noChart := flag.Bool("no-chart", false, "Skip the equity chart")
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
	strat, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		logger.Fatal("strategy", zap.Error(err))
	}

	bars, err := cli.LoadBars(ctx, cfg, stores.Bars)
	if err != nil {
		logger.Fatal("load bars", zap.Error(err))
	}
	logger.Info("bars loaded",
		zap.Int("count", len(bars)),
		zap.Time("first", time.UnixMilli(bars[0].Timestamp).UTC()),
		zap.Time("last", time.UnixMilli(bars[len(bars)-1].Timestamp).UTC()),
	)

	runner := backtest.NewRunner(backtest.RunnerOptions{
		Runs:    stores.Runs,
		Curves:  stores.Curves,
		Metrics: observability.DefaultMetrics,
		Logger:  logger,
	})
	run, err := runner.RunBars(ctx, bars, backtest.RunRequest{
		Symbol:   cfg.Data.Symbol,
		Interval: cfg.Data.Interval,
		Strategy: cfg.Strategy,
		Config:   engineCfg,
	})
	if err != nil {
		logger.Fatal("backtest", zap.Error(err))
	}
	result := run.Result

	if !*quiet {
		stop, _ := risk.NewStopLoss(cfg.StopLoss)
		sizer, _ := risk.NewSizer(cfg.Sizing)

		fmt.Println("==================================================")
		fmt.Printf("Strategy:      %s\n", strat.Description())
		fmt.Printf("Stop loss:     %s\n", stop.Describe())
		fmt.Printf("Sizing:        %s\n", sizer.Describe())
		fmt.Printf("Run ID:        %s\n", run.RunID)
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Initial:       $%.2f\n", result.InitialCapital)
		fmt.Printf("Final:         $%.2f\n", result.FinalEquity)
		fmt.Printf("Total return:  %.2f%%\n", result.TotalReturn*100)
		fmt.Printf("Sharpe:        %.3f\n", result.SharpeRatio)
		fmt.Printf("Sortino:       %.3f\n", result.SortinoRatio)
		fmt.Printf("Calmar:        %.3f\n", result.CalmarRatio)
		fmt.Printf("Max drawdown:  %.2f%%\n", result.MaxDrawdown*100)
		fmt.Printf("Trades:        %d\n", result.TotalTrades)
		if ts := result.TradeStats; ts != nil && ts.TotalTrades > 0 {
			fmt.Printf("Win rate:      %.1f%%\n", ts.WinRate*100)
			fmt.Printf("Profit factor: %.2f\n", ts.ProfitFactor)
			fmt.Printf("Expectancy:    $%.2f\n", ts.Expectancy)
		}
		fmt.Println("==================================================")
	}

	if err := cli.EnsureDir(cfg.Data.OutputDir); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}
	base := filepath.Join(cfg.Data.OutputDir, fmt.Sprintf("backtest_%s", run.StrategyID))
	if err := reporting.SaveResultJSON(base+".json", result); err != nil {
		logger.Fatal("write result", zap.Error(err))
	}
	if err := reporting.SaveEquityCSV(base+"_equity.csv", result.EquityCurve); err != nil {
		logger.Fatal("write equity", zap.Error(err))
	}
	if err := reporting.SaveTradesCSV(base+"_trades.csv", result.Trades); err != nil {
		logger.Fatal("write trades", zap.Error(err))
	}
	if !*noChart {
		if err := plotting.SaveEquityChart(base+"_equity.png", strat.Description(), result.EquityCurve); err != nil {
			logger.Warn("equity chart", zap.Error(err))
		}
		if png, err := plotting.DrawdownChart("Drawdown %", result.InitialCapital, result.EquityCurve); err != nil {
			logger.Warn("drawdown chart", zap.Error(err))
		} else if err := plotting.Save(base+"_drawdown.png", png); err != nil {
			logger.Warn("drawdown chart", zap.Error(err))
		}
	}

	fmt.Printf("Results written to %s*\n", base)
}
