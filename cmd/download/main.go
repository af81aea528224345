package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/cli"
	"strataquant/internal/domain"
	"strataquant/internal/marketdata"
	"strataquant/internal/observability"
	"strataquant/internal/storage"
	"strataquant/internal/storage/arrowfile"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine)
	baseURL := flag.String("base-url", marketdata.DefaultBaseURL, "Exchange REST endpoint")
	maxRetries := flag.Int("max-retries", marketdata.DefaultMaxRetries, "Retries per request on 429/5xx")
	skipArrow := flag.Bool("no-arrow", false, "Do not write the Arrow file")
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

	start, end, err := cfg.Data.Window()
	if err != nil {
		logger.Fatal("date window", zap.Error(err))
	}
	if start.IsZero() {
		logger.Fatal("-start is required")
	}
	if end.IsZero() {
		end = time.Now().UTC()
	} else {
		end = end.Add(24*time.Hour - time.Millisecond)
	}

	client := marketdata.NewBinanceClient(*baseURL,
		marketdata.WithMaxRetries(*maxRetries),
		marketdata.WithLogger(logger),
		marketdata.WithMetrics(observability.DefaultMetrics),
	)

	logger.Info("downloading",
		zap.String("symbol", cfg.Data.Symbol),
		zap.String("interval", cfg.Data.Interval),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	bars, err := client.FetchRange(ctx, cfg.Data.Symbol, cfg.Data.Interval, start, end)
	if err != nil {
		logger.Fatal("download", zap.Error(err))
	}
	if len(bars) == 0 {
		logger.Fatal("exchange returned no bars")
	}
	logger.Info("downloaded", zap.Int("bars", len(bars)))

	if !*skipArrow && cfg.Data.ArrowFile != "" {
		if err := cli.EnsureDir(filepath.Dir(cfg.Data.ArrowFile)); err != nil {
			logger.Fatal("create data dir", zap.Error(err))
		}
		if err := arrowfile.Save(cfg.Data.ArrowFile, bars); err != nil {
			logger.Fatal("write arrow file", zap.Error(err))
		}
		logger.Info("arrow file written", zap.String("path", cfg.Data.ArrowFile))
	}

	if cfg.Storage.ClickHouseDSN != "" && !cfg.Storage.UseMemory {
		stores, closeStores, err := cli.OpenStores(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("open stores", zap.Error(err))
		}
		defer closeStores()

		inserted, err := insertNew(ctx, stores.Bars, cfg.Data.Symbol, cfg.Data.Interval, bars)
		if err != nil {
			logger.Fatal("store bars", zap.Error(err))
		}
		logger.Info("bars stored", zap.Int("inserted", inserted), zap.Int("skipped", len(bars)-inserted))
	}

	first := time.UnixMilli(bars[0].Timestamp).UTC()
	last := time.UnixMilli(bars[len(bars)-1].Timestamp).UTC()
	fmt.Printf("%d bars %s to %s\n", len(bars), first.Format("2006-01-02"), last.Format("2006-01-02"))
}

// insertNew stores bars whose timestamps the series does not have yet.
// InsertBulk rejects a whole batch on any duplicate, so overlaps with an
// earlier download are filtered first.
func insertNew(ctx context.Context, store storage.PriceBarStore, symbol, interval string, bars []domain.PriceBar) (int, error) {
	existing, err := store.GetByTimeRange(ctx, symbol, interval, bars[0].Timestamp, bars[len(bars)-1].Timestamp)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(existing))
	for _, b := range existing {
		seen[b.Timestamp] = struct{}{}
	}

	fresh := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if _, ok := seen[b.Timestamp]; !ok {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := store.InsertBulk(ctx, symbol, interval, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
