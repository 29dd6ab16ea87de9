package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV interval for a symbol. Bars are immutable once loaded.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Range returns High-Low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Change returns Close-Open.
func (b Bar) Change() float64 {
	return b.Close - b.Open
}

// Validate rejects bars the replay cannot price: a close that is not a
// positive finite number, or an open, high, low or volume that is negative
// or not finite.
func (b Bar) Validate() error {
	if !(b.Close > 0) || math.IsInf(b.Close, 0) {
		return fmt.Errorf("bar %s %s: bad close %v", b.Symbol, b.Time.Format(time.RFC3339), b.Close)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"volume", b.Volume}} {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("bar %s %s: bad %s %v", b.Symbol, b.Time.Format(time.RFC3339), f.name, f.v)
		}
	}
	return nil
}
