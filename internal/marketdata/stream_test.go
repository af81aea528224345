package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func klineMessage(ts int64, close string, closed bool) []byte {
	msg := fmt.Sprintf(`{"e":"kline","E":%d,"s":"BTCUSDT","k":{"t":%d,"T":%d,"s":"BTCUSDT","i":"1m","o":"100","h":"110","l":"90","c":%q,"v":"3.5","x":%t}}`,
		ts+1, ts, ts+59999, close, closed)
	return []byte(msg)
}

func streamConfig(server *httptest.Server) StreamConfig {
	return StreamConfig{
		URL:               "ws" + strings.TrimPrefix(server.URL, "http"),
		ReconnectDelay:    5 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
		ReadTimeout:       2 * time.Second,
	}
}

func TestKlineStream_DeliversClosedBarsAndReconnects(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return
		}
		assert.Equal(t, "SUBSCRIBE", req.Method)
		assert.Equal(t, []string{"btcusdt@kline_1m"}, req.Params)
		c.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"result":null,"id":%d}`, req.ID)))

		switch connections.Add(1) {
		case 1:
			c.WriteMessage(websocket.TextMessage, klineMessage(0, "101", false))
			c.WriteMessage(websocket.TextMessage, klineMessage(0, "102", true))
			// drop the connection to force a reconnect
		default:
			c.WriteMessage(websocket.TextMessage, klineMessage(60_000, "103.5", true))
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []domain.PriceBar
	err := NewKlineStream(streamConfig(server)).Run(ctx, "BTCUSDT", "1m", func(_ context.Context, bar domain.PriceBar) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, bar)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].Timestamp)
	assert.Equal(t, 102.0, got[0].Close)
	assert.Equal(t, 3.5, got[0].Volume)
	assert.Equal(t, int64(60_000), got[1].Timestamp)
	assert.Equal(t, 103.5, got[1].Close)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestKlineStream_HandlerErrorStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
		c.WriteMessage(websocket.TextMessage, klineMessage(0, "100", true))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	sentinel := errors.New("store down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := NewKlineStream(streamConfig(server)).Run(ctx, "BTCUSDT", "1m", func(context.Context, domain.PriceBar) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestDecodeKline(t *testing.T) {
	bar, closed, err := decodeKline(klineMessage(120_000, "99.25", true))
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, int64(120_000), bar.Timestamp)
	assert.Equal(t, 99.25, bar.Close)
	assert.Equal(t, 110.0, bar.High)

	_, _, err = decodeKline([]byte(`{"result":null,"id":1}`))
	assert.ErrorIs(t, err, ErrMalformedKline)
}

func TestDecodeKline_FullFrame(t *testing.T) {
	frame := []byte(`{"e":"kline","E":1700000061234,"s":"BTCUSDT","k":{` +
		`"t":1700000000000,"T":1700000059999,"s":"BTCUSDT","i":"1m","f":100,"L":200,` +
		`"o":"0.0010","c":"0.0020","h":"0.0025","l":"0.0015","v":"1000","n":100,"x":false,` +
		`"q":"1.0000","V":"500","Q":"0.500","B":"123456"}}`)

	bar, closed, err := decodeKline(frame)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, int64(1700000000000), bar.Timestamp, "open time, not close time")
	assert.Equal(t, 0.0010, bar.Open)
	assert.Equal(t, 0.0025, bar.High)
	assert.Equal(t, 0.0015, bar.Low, "low, not last trade id")
	assert.Equal(t, 0.0020, bar.Close)
	assert.Equal(t, 1000.0, bar.Volume, "base volume, not taker volume")
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "ethusdt@kline_5m", StreamName("ETHUSDT", "5m"))
}
