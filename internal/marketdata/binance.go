// Package marketdata downloads and streams OHLCV klines from Binance.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"strataquant/internal/domain"
	"strataquant/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.binance.us"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultChunkPause  = 100 * time.Millisecond
	DefaultLimit       = 1000

	klinesPath = "/api/v3/klines"
)

var (
	// ErrInvalidRange is returned when start is not before end.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrMalformedKline is returned when a kline row cannot be decoded.
	ErrMalformedKline = errors.New("malformed kline")
)

// APIError is a non-retryable error reported by the exchange.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance error %d (status %d): %s", e.Code, e.Status, e.Message)
}

// BinanceClient fetches klines over the public REST API.
type BinanceClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	chunkPause  time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// ClientOption configures BinanceClient.
type ClientOption func(*BinanceClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *BinanceClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.maxDelay = d
	}
}

// WithChunkPause sets the pause between chunk requests in FetchRange.
func WithChunkPause(d time.Duration) ClientOption {
	return func(c *BinanceClient) {
		c.chunkPause = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *BinanceClient) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *BinanceClient) {
		c.logger = observability.OrNop(l)
	}
}

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *BinanceClient) {
		c.metrics = m
	}
}

// NewBinanceClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewBinanceClient(baseURL string, opts ...ClientOption) *BinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &BinanceClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		chunkPause:  DefaultChunkPause,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the time span requested per call for an interval.
// Unknown intervals use the daily span.
func ChunkSize(interval string) time.Duration {
	switch interval {
	case "1h":
		return 1000 * time.Hour
	case "5m":
		return 5000 * time.Minute
	case "1m":
		return 1000 * time.Minute
	default:
		return 1000 * 24 * time.Hour
	}
}

// FetchKlines requests one page of klines in [start, end]. A limit <= 0
// uses DefaultLimit.
func (c *BinanceClient) FetchKlines(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]domain.PriceBar, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := c.get(ctx, klinesPath, q, &rows); err != nil {
		return nil, err
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// FetchRange downloads [start, end] in chunks sized by ChunkSize, pausing
// between requests. Bars repeated at chunk boundaries are dropped.
func (c *BinanceClient) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.PriceBar, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, start, end)
	}

	chunk := ChunkSize(interval)
	var all []domain.PriceBar
	current := start

	for current.Before(end) {
		chunkEnd := current.Add(chunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		bars, err := c.FetchKlines(ctx, symbol, interval, current, chunkEnd, DefaultLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s from %s: %w", symbol, interval, current.Format(time.RFC3339), err)
		}
		if len(bars) == 0 {
			break
		}

		for _, b := range bars {
			if len(all) > 0 && b.Timestamp <= all[len(all)-1].Timestamp {
				continue
			}
			all = append(all, b)
		}

		c.logger.Debug("fetched chunk",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("bars", len(bars)),
			zap.Int("total", len(all)),
		)

		current = chunkEnd
		if !current.Before(end) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.chunkPause):
		}
	}

	return all, nil
}

// get performs a GET with retries and exponential backoff. 429 and 5xx
// responses are retried; other non-200 responses are returned as APIError.
func (c *BinanceClient) get(ctx context.Context, path string, q url.Values, result interface{}) error {
	endpoint := c.baseURL + path + "?" + q.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		started := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.metrics.RecordMarketDataRequest(path, "transport", time.Since(started))
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.metrics.RecordMarketDataRequest(path, "read", time.Since(started))
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.metrics.RecordMarketDataRequest(path, "rate_limited", time.Since(started))
			c.logger.Warn("rate limited", zap.String("path", path), zap.Int("attempt", attempt))
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			c.metrics.RecordMarketDataRequest(path, "server", time.Since(started))
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		case resp.StatusCode != http.StatusOK:
			c.metrics.RecordMarketDataRequest(path, "client", time.Since(started))
			apiErr := &APIError{Status: resp.StatusCode}
			if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
				apiErr.Message = string(body)
			}
			return apiErr
		}

		c.metrics.RecordMarketDataRequest(path, "", time.Since(started))
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseKline decodes [openTime, open, high, low, close, volume, ...].
// Prices arrive as strings and go through decimal to avoid float parse drift.
func parseKline(row []json.RawMessage) (domain.PriceBar, error) {
	if len(row) < 6 {
		return domain.PriceBar{}, fmt.Errorf("%w: %d fields", ErrMalformedKline, len(row))
	}

	var bar domain.PriceBar
	if err := json.Unmarshal(row[0], &bar.Timestamp); err != nil {
		return domain.PriceBar{}, fmt.Errorf("%w: open time: %v", ErrMalformedKline, err)
	}

	fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
	names := []string{"open", "high", "low", "close", "volume"}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return domain.PriceBar{}, fmt.Errorf("%w: %s: %v", ErrMalformedKline, names[i], err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("%w: %s %q: %v", ErrMalformedKline, names[i], s, err)
		}
		*dst = d.InexactFloat64()
	}
	return bar, nil
}
