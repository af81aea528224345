package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/cli"
	"strataquant/internal/domain"
	"strataquant/internal/marketdata"
	"strataquant/internal/observability"
	"strataquant/internal/storage"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine)
	wsURL := flag.String("ws-url", marketdata.DefaultStreamURL, "Exchange websocket endpoint")
	pingInterval := flag.Duration("ping-interval", 30*time.Second, "Websocket ping interval")
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

	streamCfg := marketdata.DefaultStreamConfig()
	streamCfg.URL = *wsURL
	streamCfg.PingInterval = *pingInterval
	streamCfg.Logger = logger
	streamCfg.Metrics = observability.DefaultMetrics

	symbol, interval := cfg.Data.Symbol, cfg.Data.Interval
	logger.Info("streaming closed bars",
		zap.String("stream", marketdata.StreamName(symbol, interval)),
		zap.String("url", streamCfg.URL),
	)

	err = marketdata.NewKlineStream(streamCfg).Run(ctx, symbol, interval, storeBar(stores.Bars, symbol, interval, logger))
	if err != nil {
		logger.Fatal("stream", zap.Error(err))
	}
	logger.Info("stream stopped")
}

// storeBar persists each closed bar. A bar already stored (a replay after
// reconnect) is skipped.
func storeBar(bars storage.PriceBarStore, symbol, interval string, logger *zap.Logger) marketdata.BarHandler {
	return func(ctx context.Context, bar domain.PriceBar) error {
		err := bars.InsertBulk(ctx, symbol, interval, []domain.PriceBar{bar})
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Debug("bar already stored", zap.Int64("timestamp", bar.Timestamp))
			return nil
		case err != nil:
			return fmt.Errorf("store bar %d: %w", bar.Timestamp, err)
		}
		logger.Info("bar stored",
			zap.Time("open_time", time.UnixMilli(bar.Timestamp).UTC()),
			zap.Float64("close", bar.Close),
		)
		return nil
	}
}
