package metrics

import (
	"math"

	"github.com/rustyeddy/backtester/sim"
)

// TradingDays annualizes the per-tick Sharpe ratio.
const TradingDays = 252

type MonthlyReturn struct {
	Month  string  `json:"month"` // "2006-01"
	Return float64 `json:"return"`
}

// Report holds the terminal statistics of a run.
type Report struct {
	InitialCapital   float64         `json:"initial_capital"`
	FinalCapital     float64         `json:"final_capital"`
	TotalReturn      float64         `json:"total_return"`
	TotalPnL         float64         `json:"total_pnl"`
	TotalTrades      int             `json:"total_trades"`
	WinningTrades    int             `json:"winning_trades"`
	LosingTrades     int             `json:"losing_trades"`
	WinRate          float64         `json:"win_rate"`
	ProfitFactor     float64         `json:"profit_factor"`
	SharpeRatio      float64         `json:"sharpe_ratio"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	AvgTradeDuration float64         `json:"avg_trade_duration_hours"`
	MonthlyReturns   []MonthlyReturn `json:"monthly_returns"`
}

// Compute derives the report from a finished run. Only closed trades are
// counted; positions still open contribute through the equity curve.
func Compute(initial float64, curve []EquityPoint, returns []float64, trades []sim.Position) Report {
	r := Report{
		InitialCapital: initial,
		FinalCapital:   initial,
	}
	if n := len(curve); n > 0 {
		r.FinalCapital = curve[n-1].Equity
	}
	if initial != 0 {
		r.TotalReturn = (r.FinalCapital - initial) / initial
	}

	var grossWin, grossLoss, hours float64
	var timed int
	for _, t := range trades {
		if t.Status != sim.StatusClosed {
			continue
		}
		r.TotalTrades++
		r.TotalPnL += t.PnL
		switch {
		case t.PnL > 0:
			r.WinningTrades++
			grossWin += t.PnL
		case t.PnL < 0:
			r.LosingTrades++
			grossLoss += -t.PnL
		}
		if d := t.Duration(); !t.EntryTime.IsZero() && !t.ExitTime.IsZero() {
			hours += d.Hours()
			timed++
		}
	}

	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
	r.ProfitFactor = ProfitFactor(grossWin, grossLoss)
	if timed > 0 {
		r.AvgTradeDuration = hours / float64(timed)
	}

	r.MaxDrawdown = MaxDrawdown(curve)
	r.SharpeRatio = Sharpe(returns)
	r.MonthlyReturns = Monthly(initial, curve)
	return r
}

// ProfitFactor is gross winning over gross losing P&L. With no losses it is
// +Inf when anything was won and 0 otherwise.
func ProfitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return math.Abs(grossWin) / math.Abs(grossLoss)
}

// MaxDrawdown is the largest peak to trough decline as a fraction of the
// running peak.
func MaxDrawdown(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for i, pt := range curve {
		if i == 0 || pt.Equity > peak {
			peak = pt.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - pt.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// flatReturnsTol is the deviation, relative to the mean return, below which
// returns count as flat.
const flatReturnsTol = 1e-9

// Sharpe is mean/stdev*sqrt(252) using the population standard deviation.
// Fewer than two returns or a flat series gives 0.
func Sharpe(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range returns {
		sum += x
	}
	mean := sum / float64(n)

	var ss float64
	for _, x := range returns {
		d := x - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n))
	// flat returns leave rounding noise, not volatility
	if !(std > flatReturnsTol*math.Abs(mean)) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDays)
}

// Monthly compares the last equity of each calendar month (UTC) with the
// last equity of the month before; the first month is measured against
// initial.
func Monthly(initial float64, curve []EquityPoint) []MonthlyReturn {
	var out []MonthlyReturn
	base := initial
	for i, pt := range curve {
		month := pt.Time.UTC().Format("2006-01")
		last := i == len(curve)-1 || curve[i+1].Time.UTC().Format("2006-01") != month
		if !last {
			continue
		}
		r := 0.0
		if base != 0 {
			r = (pt.Equity - base) / base
		}
		out = append(out, MonthlyReturn{Month: month, Return: r})
		base = pt.Equity
	}
	return out
}
