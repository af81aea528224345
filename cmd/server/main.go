// Package main runs the HTTP API, optionally with a live kline stream that
// keeps the price store current.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"strataquant/internal/api"
	"strataquant/internal/cli"
	"strataquant/internal/domain"
	"strataquant/internal/marketdata"
	"strataquant/internal/observability"
	"strataquant/internal/storage"
)

func main() {
	flags := cli.NewFlags(flag.CommandLine).WithEngine().WithOptimization()
	addr := flag.String("addr", ":8080", "HTTP listen address")
	origins := flag.String("cors-origins", "", "Comma-separated allowed origins (empty allows all)")
	stream := flag.Bool("stream", false, "Stream closed bars for -symbol/-interval into the price store")
	wsURL := flag.String("ws-url", marketdata.DefaultStreamURL, "Exchange websocket endpoint")
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

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	stores, closeStores, err := cli.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer closeStores()

	base, err := cfg.BacktestConfig()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}

	var allowed []string
	if *origins != "" {
		allowed = strings.Split(*origins, ",")
	}
	srv := api.NewServer(api.Options{
		Bars:           stores.Bars,
		Runs:           stores.Runs,
		Curves:         stores.Curves,
		Sweeps:         stores.Sweeps,
		Metrics:        observability.DefaultMetrics,
		Logger:         logger,
		Base:           base,
		Workers:        cfg.Optimization.Workers,
		AllowedOrigins: allowed,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, *addr)
	})
	if *stream {
		streamCfg := marketdata.DefaultStreamConfig()
		streamCfg.URL = *wsURL
		streamCfg.Logger = logger.Named("stream")
		streamCfg.Metrics = observability.DefaultMetrics

		symbol, interval := cfg.Data.Symbol, cfg.Data.Interval
		g.Go(func() error {
			return marketdata.NewKlineStream(streamCfg).Run(gctx, symbol, interval,
				func(ctx context.Context, bar domain.PriceBar) error {
					err := stores.Bars.InsertBulk(ctx, symbol, interval, []domain.PriceBar{bar})
					if errors.Is(err, storage.ErrDuplicateKey) {
						return nil
					}
					return err
				})
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped")
}
