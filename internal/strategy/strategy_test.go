package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strataquant/internal/domain"
)

// Helper to create bars from closes
func makeBars(closes []float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Timestamp: int64(i) * 86400000,
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func TestBuyAndHold_AllLong(t *testing.T) {
	s := NewBuyAndHold()
	signals := s.GenerateSignals(makeBars([]float64{100, 110, 120, 90}))

	require.Len(t, signals, 4)
	for i, v := range signals {
		if v != 1.0 {
			t.Errorf("bar %d: expected 1.0, got %f", i, v)
		}
	}
	assert.Equal(t, "Buy and Hold", s.Name())
}

func TestSMA(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-12)
	assert.InDelta(t, 3.0, sma[3], 1e-12)
	assert.InDelta(t, 4.0, sma[4], 1e-12)

	for _, v := range SMA([]float64{1, 2}, 0) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestNewSMACrossover_InvalidPeriods(t *testing.T) {
	cases := [][2]int{{0, 10}, {10, 10}, {20, 10}, {-1, 5}}
	for _, c := range cases {
		_, err := NewSMACrossover(c[0], c[1])
		if !errors.Is(err, ErrInvalidPeriods) {
			t.Errorf("fast=%d slow=%d: expected ErrInvalidPeriods, got %v", c[0], c[1], err)
		}
	}
}

func TestSMACrossover_GoldenAndDeathCross(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	// falling, then rising (golden cross), then falling (death cross)
	closes := []float64{10, 9, 8, 7, 9, 12, 15, 11, 7, 4}
	signals := s.GenerateSignals(makeBars(closes))
	require.Len(t, signals, len(closes))

	// Undefined slow SMA on first two bars
	assert.Equal(t, 0.0, signals[0])
	assert.Equal(t, 0.0, signals[1])

	fast := SMA(closes, 2)
	slow := SMA(closes, 3)
	position := 0.0
	for i := 3; i < len(closes); i++ {
		if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
			position = 1
		} else if fast[i-1] >= slow[i-1] && fast[i] < slow[i] {
			position = 0
		}
		assert.Equal(t, position, signals[i], "bar %d", i)
	}

	assert.Contains(t, signals, 1.0, "expected a long period")
	assert.Equal(t, 0.0, signals[len(signals)-1], "expected flat after death cross")
}

func TestSMACrossover_WaitsForCrossAfterWarmup(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	// Steady uptrend: fast > slow as soon as both are defined, but no cross
	// is ever observed, so the strategy stays flat.
	signals := s.GenerateSignals(makeBars([]float64{1, 2, 3, 4, 5, 6}))
	for i, v := range signals {
		assert.Equal(t, 0.0, v, "bar %d", i)
	}
}

func TestSMACrossover_ExposureBounds(t *testing.T) {
	s, err := NewSMACrossover(3, 7)
	require.NoError(t, err)

	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/8)
	}
	signals := s.GenerateSignals(makeBars(closes))

	require.Len(t, signals, 200)
	for _, v := range signals {
		assert.True(t, v == 0 || v == 1)
	}
}

func TestSMACrossover_Deterministic(t *testing.T) {
	s, _ := NewSMACrossover(5, 20)
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 50 + float64(i%17) - float64(i%5)
	}
	bars := makeBars(closes)

	first := s.GenerateSignals(bars)
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, s.GenerateSignals(bars), "run %d", run)
	}
}
