package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	r := Returns([]float64{100, 110, 99})
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)

	assert.Nil(t, Returns([]float64{100}))
	assert.Nil(t, Returns(nil))
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03, 0.01}
	sharpe := SharpeRatio(returns, 252)
	if sharpe <= 0 {
		t.Errorf("expected positive sharpe, got %f", sharpe)
	}

	// mean 0.012, population std sqrt(0.000176)
	expected := 0.012 / math.Sqrt(0.000176) * math.Sqrt(252)
	assert.InDelta(t, expected, sharpe, 1e-9)
}

func TestSharpeRatio_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio(nil, 365))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 365), "zero volatility")
}

func TestSortinoRatio_DividesByTotalCount(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}
	mean := 0.005
	// downside variance over all 4 returns, not the 2 negative ones
	downside := math.Sqrt((0.0001 + 0.0004) / 4)
	expected := mean / downside * math.Sqrt(365)

	assert.InDelta(t, expected, SortinoRatio(returns, 365), 1e-9)
}

func TestSortinoRatio_Sentinels(t *testing.T) {
	assert.Equal(t, SentinelRatio, SortinoRatio([]float64{0.01, 0.02, 0.01, 0.03}, 252))
	assert.Equal(t, 0.0, SortinoRatio(nil, 252))

	bounded := SortinoRatio([]float64{0.01, -0.01, 0.02, -0.02, 0.01}, 252)
	assert.Less(t, math.Abs(bounded), 5.0)
}

func TestCalmarRatio(t *testing.T) {
	// one year, 100% return, 50% drawdown
	assert.InDelta(t, 2.0, CalmarRatio(1.0, -0.5, 365), 0.01)
	// two years, 200% return, 40% drawdown
	assert.InDelta(t, 2.5, CalmarRatio(2.0, -0.4, 730), 0.01)

	assert.Equal(t, 0.0, CalmarRatio(0.5, 0, 365))
	assert.Equal(t, 0.0, CalmarRatio(0.5, -0.1, 0))
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic", []float64{100, 101, 105, 110}, 0},
		{"flat", []float64{100, 100, 100}, 0},
		{"single dip", []float64{100, 120, 90, 130}, -0.25},
		{"worst of two", []float64{100, 90, 100, 200, 150}, -0.25},
		{"first bar is peak", []float64{100, 80}, -0.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.equity)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.LessOrEqual(t, got, 0.0)
		})
	}
}

func TestRatios_ScaleInvariant(t *testing.T) {
	base := []float64{100, 105, 98, 110, 107, 120}
	scaled := make([]float64, len(base))
	for i, e := range base {
		scaled[i] = e * 37.5
	}

	r1, r2 := Returns(base), Returns(scaled)
	assert.InDelta(t, SharpeRatio(r1, 365), SharpeRatio(r2, 365), 1e-9)
	assert.InDelta(t, SortinoRatio(r1, 365), SortinoRatio(r2, 365), 1e-9)
	assert.InDelta(t, MaxDrawdown(base), MaxDrawdown(scaled), 1e-12)
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, -0.10, TotalReturn(10000, 9000), 1e-12)
	assert.InDelta(t, 0.5, TotalReturn(100, 150), 1e-12)
}
