package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidBar is returned when a price bar violates OHLCV consistency.
var ErrInvalidBar = errors.New("invalid price bar")

// PriceBar is one OHLCV observation for a fixed interval.
type PriceBar struct {
	Timestamp int64   `json:"timestamp"` // open time (ms since epoch)
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Validate checks OHLC consistency: high bounds every price, low bounds
// open and close, prices are positive and volume is non-negative.
func (b PriceBar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: non-positive price at %d", ErrInvalidBar, b.Timestamp)
	}
	if b.High < b.Low || b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("%w: high below other prices at %d", ErrInvalidBar, b.Timestamp)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("%w: low above open/close at %d", ErrInvalidBar, b.Timestamp)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume at %d", ErrInvalidBar, b.Timestamp)
	}
	return nil
}

// ValidateBars validates every bar and checks timestamps are strictly increasing.
func ValidateBars(bars []PriceBar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && b.Timestamp <= bars[i-1].Timestamp {
			return fmt.Errorf("%w: timestamp %d not after %d", ErrInvalidBar, b.Timestamp, bars[i-1].Timestamp)
		}
	}
	return nil
}

// Closes extracts the close series.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
