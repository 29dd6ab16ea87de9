// Package indicators provides streaming technical indicators over bars.
//
// Every indicator consumes one closed bar at a time and never looks back
// further than its own state, so it is safe to feed from a replay loop.
package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// Indicator computes a single streaming value from bars.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many bars are needed before Ready can be true.
	Warmup() int

	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	Ready() bool

	// Value returns the current value, or 0 before warmup.
	Value() float64
}

// New builds a moving average by kind, "sma" or "ema". Anything else is
// treated as "ema".
func New(kind string, period int) Indicator {
	if kind == "sma" {
		return NewSMA(period)
	}
	return NewEMA(period)
}

// Last feeds bars into a fresh ind and returns its final value. It fails
// when bars is too short to warm the indicator up.
func Last(ind Indicator, bars []market.Bar) (float64, error) {
	if ind.Warmup() <= 0 {
		return 0, fmt.Errorf("%s: period must be positive", ind.Name())
	}
	if len(bars) < ind.Warmup() {
		return 0, fmt.Errorf("%s: not enough bars: need %d, got %d", ind.Name(), ind.Warmup(), len(bars))
	}
	ind.Reset()
	for _, b := range bars {
		ind.Update(b)
	}
	return ind.Value(), nil
}
