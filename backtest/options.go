package backtest

import (
	"github.com/rustyeddy/backtester/market"
)

const (
	// ConfidenceThreshold is the fixed acceptance bar: a BUY or SELL is
	// acted on only when its confidence exceeds it.
	ConfidenceThreshold = 0.5

	DefaultProgressEvery = 100
)

// Options tune a replay. The zero value is usable: zero fields take the
// defaults below. Position sizing always follows risk.DefaultPolicy.
type Options struct {
	Interval      string  // bar interval, default H1
	SpreadHalf    float64 // bid/ask half spread, default 0.0002
	CloseAtEnd    bool    // close open positions on the final tick
	ProgressEvery int     // ticks between progress logs; <0 disables
}

func DefaultOptions() Options {
	return Options{
		Interval:      market.DefaultInterval,
		SpreadHalf:    market.DefaultSpreadHalf,
		ProgressEvery: DefaultProgressEvery,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Interval == "" {
		o.Interval = d.Interval
	}
	if o.SpreadHalf <= 0 {
		o.SpreadHalf = d.SpreadHalf
	}
	if o.ProgressEvery == 0 {
		o.ProgressEvery = d.ProgressEvery
	}
	return o
}
