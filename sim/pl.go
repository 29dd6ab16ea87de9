package sim

import "github.com/rustyeddy/backtester/market"

// pnl is (exit-entry)*qty for longs and (entry-exit)*qty for shorts.
func pnl(action market.Action, qty, entry, exit float64) float64 {
	if action == market.Sell {
		return (entry - exit) * qty
	}
	return (exit - entry) * qty
}

// closeCredit is the cash returned when a position is closed at exit.
// Both sides debit qty*entry on open, so the credit is the notional plus
// the realized profit.
func closeCredit(action market.Action, qty, entry, exit float64) float64 {
	if action == market.Sell {
		return qty * (2*entry - exit)
	}
	return qty * exit
}
