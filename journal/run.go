package journal

import (
	"math"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/risk"
)

// BacktestRun mirrors the backtest_runs table. Trades and Equity are only
// filled by GetRun.
type BacktestRun struct {
	RunID      string
	Created    time.Time
	StrategyID string
	Symbols    []string
	Dropped    []string
	Interval   string
	Start      time.Time
	End        time.Time
	Ticks      int

	InitialCapital   float64
	FinalCapital     float64
	TotalReturn      float64
	TotalPnL         float64
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          float64
	ProfitFactor     float64 // +Inf when there are wins and no losses
	SharpeRatio      float64
	MaxDrawdown      float64
	AvgTradeDuration float64 // hours
	MonthlyReturns   []metrics.MonthlyReturn

	// Risk policy the run was sized with
	RiskPct  float64
	StopPips float64 // mean over trades
	RR       float64

	Trades []TradeRecord
	Equity []EquitySnapshot
}

// NewBacktestRun summarizes a result for storage and reports.
func NewBacktestRun(res *backtest.Result) BacktestRun {
	m := res.Metrics
	pol := risk.DefaultPolicy()
	run := BacktestRun{
		RunID:            res.RunID,
		Created:          res.Created,
		StrategyID:       res.StrategyID,
		Symbols:          res.Symbols,
		Dropped:          res.Dropped,
		Interval:         res.Interval,
		Start:            res.Start,
		End:              res.End,
		Ticks:            res.Ticks,
		InitialCapital:   res.InitialCapital,
		FinalCapital:     m.FinalCapital,
		TotalReturn:      m.TotalReturn,
		TotalPnL:         m.TotalPnL,
		TotalTrades:      m.TotalTrades,
		WinningTrades:    m.WinningTrades,
		LosingTrades:     m.LosingTrades,
		WinRate:          m.WinRate,
		ProfitFactor:     m.ProfitFactor,
		SharpeRatio:      m.SharpeRatio,
		MaxDrawdown:      m.MaxDrawdown,
		AvgTradeDuration: m.AvgTradeDuration,
		MonthlyReturns:   m.MonthlyReturns,
		RiskPct:          pol.RiskPct,
		RR:               pol.RewardRisk,
		Trades:           TradeRecords(res),
		Equity:           EquitySnapshots(res),
	}
	run.StopPips = meanStopPips(run.Trades)
	return run
}

func meanStopPips(trades []TradeRecord) float64 {
	if len(trades) == 0 {
		return 0
	}
	var sum float64
	for _, t := range trades {
		loc := -4
		if meta, ok := market.Instruments[t.Symbol]; ok {
			loc = meta.PipLocation
		}
		sum += risk.StopPips(t.EntryPrice, t.StopLoss, loc)
	}
	return sum / float64(len(trades))
}

// profitFactorValue maps +Inf to SQL NULL.
func profitFactorValue(pf float64) any {
	if math.IsInf(pf, 0) || math.IsNaN(pf) {
		return nil
	}
	return pf
}
