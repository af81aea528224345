package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func klineRow(ts int64, close string) []interface{} {
	return []interface{}{ts, "100.5", "110.25", "95.125", close, "12.5", ts + 59999, "0", 10, "0", "0", "0"}
}

func testClient(url string) *BinanceClient {
	return NewBinanceClient(url,
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithChunkPause(0),
	)
}

func TestFetchKlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, klinesPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "1000", q.Get("limit"))
		assert.Equal(t, "0", q.Get("startTime"))

		json.NewEncoder(w).Encode([]interface{}{
			klineRow(0, "105"),
			klineRow(86_400_000, "106.75"),
		})
	}))
	defer server.Close()

	bars, err := testClient(server.URL).FetchKlines(context.Background(), "BTCUSDT", "1d",
		time.UnixMilli(0), time.UnixMilli(2*86_400_000), 0)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, int64(0), bars[0].Timestamp)
	assert.Equal(t, 100.5, bars[0].Open)
	assert.Equal(t, 110.25, bars[0].High)
	assert.Equal(t, 95.125, bars[0].Low)
	assert.Equal(t, 105.0, bars[0].Close)
	assert.Equal(t, 12.5, bars[0].Volume)
	assert.Equal(t, 106.75, bars[1].Close)
}

func TestFetchKlines_RetriesRateLimitAndServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			json.NewEncoder(w).Encode([]interface{}{klineRow(0, "101")})
		}
	}))
	defer server.Close()

	bars, err := testClient(server.URL).FetchKlines(context.Background(), "BTCUSDT", "1d",
		time.UnixMilli(0), time.UnixMilli(1), 10)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchKlines_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)
	WithMaxRetries(2)(client)

	_, err := client.FetchKlines(context.Background(), "BTCUSDT", "1d", time.UnixMilli(0), time.UnixMilli(1), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchKlines_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchKlines(context.Background(), "NOPE", "1d", time.UnixMilli(0), time.UnixMilli(1), 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1121, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid symbol.", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchKlines_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short row", `[[0,"1","2"]]`},
		{"bad price", `[[0,"abc","2","1","1","1"]]`},
		{"numeric price", `[[0,1,"2","1","1","1"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := testClient(server.URL).FetchKlines(context.Background(), "X", "1d", time.UnixMilli(0), time.UnixMilli(1), 10)
			assert.ErrorIs(t, err, ErrMalformedKline)
		})
	}
}

func TestFetchRange_Chunks(t *testing.T) {
	const hour = int64(time.Hour / time.Millisecond)
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)

		// endTime is inclusive, so boundary bars repeat across chunks
		var rows []interface{}
		for ts := start; ts <= end; ts += hour {
			rows = append(rows, klineRow(ts, "100"))
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	start := time.UnixMilli(0)
	end := start.Add(1500 * time.Hour)

	bars, err := testClient(server.URL).FetchRange(context.Background(), "BTCUSDT", "1h", start, end)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, bars, 1501)
	for i := 1; i < len(bars); i++ {
		assert.Greater(t, bars[i].Timestamp, bars[i-1].Timestamp)
	}
}

func TestFetchRange_StopsOnEmptyChunk(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	bars, err := testClient(server.URL).FetchRange(context.Background(), "BTCUSDT", "1m",
		time.UnixMilli(0), time.UnixMilli(0).Add(10_000*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRange_InvalidRange(t *testing.T) {
	now := time.Now()
	_, err := NewBinanceClient("").FetchRange(context.Background(), "BTCUSDT", "1d", now, now)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestChunkSize(t *testing.T) {
	assert.Equal(t, 1000*24*time.Hour, ChunkSize("1d"))
	assert.Equal(t, 1000*time.Hour, ChunkSize("1h"))
	assert.Equal(t, 5000*time.Minute, ChunkSize("5m"))
	assert.Equal(t, 1000*time.Minute, ChunkSize("1m"))
	assert.Equal(t, 1000*24*time.Hour, ChunkSize("4h"))
}
