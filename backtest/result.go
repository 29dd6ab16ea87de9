package backtest

import (
	"time"

	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/sim"
)

// Result is the immutable outcome of one run, handed to the Sink.
type Result struct {
	RunID          string                `json:"run_id"`
	StrategyID     string                `json:"strategy_id"`
	Symbols        []string              `json:"symbols"`
	Dropped        []string              `json:"dropped,omitempty"`
	Interval       string                `json:"interval"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	InitialCapital float64               `json:"initial_capital"`
	Metrics        metrics.Report        `json:"metrics"`
	Trades         []sim.Position        `json:"trades"`
	EquityCurve    []metrics.EquityPoint `json:"equity_curve"`
	Ticks          int                   `json:"ticks"`
	Created        time.Time             `json:"created"`
}

// ClosedTrades returns the trades that have an exit.
func (r *Result) ClosedTrades() []sim.Position {
	var out []sim.Position
	for _, t := range r.Trades {
		if !t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}
