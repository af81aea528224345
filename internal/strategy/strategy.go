// Package strategy defines signal generators. A strategy maps the full bar
// sequence to one target exposure per bar; the engine never calls back
// into a strategy mid-run.
package strategy

import "strataquant/internal/domain"

// Strategy produces target exposures from price bars.
type Strategy interface {
	// GenerateSignals returns one target exposure in [0, 1] per bar.
	// 1.0 is fully long, 0.0 is fully flat.
	GenerateSignals(bars []domain.PriceBar) []float64

	// Name returns the strategy name for display/logging.
	Name() string

	// Description returns a parameterized summary.
	Description() string
}
