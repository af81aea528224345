package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"strataquant/internal/domain"
	"strataquant/internal/observability"
)

// DefaultStreamURL is the Binance.US websocket endpoint.
const DefaultStreamURL = "wss://stream.binance.us:9443/ws"

// BarHandler receives each closed kline. Returning an error stops the stream.
type BarHandler func(ctx context.Context, bar domain.PriceBar) error

// StreamConfig configures KlineStream behavior.
type StreamConfig struct {
	// URL is the websocket endpoint; empty uses DefaultStreamURL.
	URL string
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// DefaultStreamConfig returns default websocket configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		URL:               DefaultStreamURL,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// KlineStream subscribes to live klines and delivers closed bars.
type KlineStream struct {
	config    StreamConfig
	logger    *zap.Logger
	requestID atomic.Uint64
}

// NewKlineStream creates a stream. Zero fields in cfg take defaults.
func NewKlineStream(cfg StreamConfig) *KlineStream {
	def := DefaultStreamConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &KlineStream{config: cfg, logger: observability.OrNop(cfg.Logger)}
}

// StreamName returns the Binance stream name, e.g. btcusdt@kline_1m.
func StreamName(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

// Run subscribes and blocks until ctx is cancelled or handler fails.
// Connection errors trigger a reconnect with exponential backoff; a
// successful read resets the delay. Cancellation returns nil.
func (s *KlineStream) Run(ctx context.Context, symbol, interval string, handler BarHandler) error {
	stream := StreamName(symbol, interval)
	delay := s.config.ReconnectDelay

	for {
		delivered, err := s.session(ctx, stream, handler)
		if ctx.Err() != nil {
			return nil
		}
		var hErr *handlerError
		if errors.As(err, &hErr) {
			return hErr.err
		}
		if delivered {
			delay = s.config.ReconnectDelay
		}

		s.logger.Warn("kline stream disconnected",
			zap.String("stream", stream),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		s.config.Metrics.RecordStreamReconnect()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

type handlerError struct{ err error }

func (e *handlerError) Error() string { return "handler: " + e.err.Error() }

// session runs one connection until it fails. delivered reports whether
// any message was read.
func (s *KlineStream) session(ctx context.Context, stream string, handler BarHandler) (delivered bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	var writeMu sync.Mutex
	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
	}()

	// Unblock ReadMessage on cancellation and keep the connection alive.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
			}
		}
	}()

	req := subscribeRequest{
		Method: "SUBSCRIBE",
		Params: []string{stream},
		ID:     s.requestID.Add(1),
	}
	writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err = conn.WriteJSON(req)
	writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	s.logger.Info("kline stream subscribed", zap.String("stream", stream), zap.String("url", s.config.URL))

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("read: %w", err)
		}
		delivered = true

		bar, closed, err := decodeKline(message)
		if err != nil {
			s.logger.Debug("skipping message", zap.Error(err))
			continue
		}
		if !closed {
			continue
		}

		s.config.Metrics.RecordStreamBar()
		if err := handler(ctx, bar); err != nil {
			return delivered, &handlerError{err: err}
		}
	}
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

// Binance mixes upper and lower case keys ("E"/"e", "T"/"t", "L"/"l").
// encoding/json falls back to case-insensitive matching, so every
// uppercase key needs its own field or it lands in the lowercase one.
type klineEvent struct {
	EventType string      `json:"e"`
	EventTime int64       `json:"E"`
	Symbol    string      `json:"s"`
	Kline     *klineFrame `json:"k"`
}

type klineFrame struct {
	OpenTime     int64  `json:"t"`
	CloseTime    int64  `json:"T"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"L"`
	Open         string `json:"o"`
	High         string `json:"h"`
	Low          string `json:"l"`
	Close        string `json:"c"`
	Volume       string `json:"v"`
	QuoteVolume  string `json:"q"`
	TakerBase    string `json:"V"`
	TakerQuote   string `json:"Q"`
	Closed       bool   `json:"x"`
}

// decodeKline parses a kline event. Subscription acks and other frames
// return ErrMalformedKline.
func decodeKline(message []byte) (domain.PriceBar, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return domain.PriceBar{}, false, fmt.Errorf("%w: %v", ErrMalformedKline, err)
	}
	if ev.EventType != "kline" || ev.Kline == nil {
		return domain.PriceBar{}, false, fmt.Errorf("%w: event %q", ErrMalformedKline, ev.EventType)
	}

	k := ev.Kline
	bar := domain.PriceBar{Timestamp: k.OpenTime}
	fields := []struct {
		dst *float64
		raw string
	}{
		{&bar.Open, k.Open},
		{&bar.High, k.High},
		{&bar.Low, k.Low},
		{&bar.Close, k.Close},
		{&bar.Volume, k.Volume},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.PriceBar{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedKline, f.raw, err)
		}
		*f.dst = d.InexactFloat64()
	}
	return bar, k.Closed, nil
}
