package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runOne(t *testing.T, strat strategies.Strategy, opts Options, data map[string][]market.Bar) (*Runner, *Outcome) {
	t.Helper()
	tl, err := Align(data, time.Time{}, time.Time{}, time.Hour)
	require.NoError(t, err)
	r := &Runner{
		Strategy: strat,
		Timeline: tl,
		Capital:  100000,
		Options:  opts,
		Logger:   logging.Discard(),
	}
	out, err := r.Run(context.Background())
	require.NoError(t, err)
	return r, out
}

func buyAt0(sym string) *scripted {
	return &scripted{signals: []market.Signal{{Symbol: sym, Action: market.Buy, Confidence: 0.9}}}
}

func TestConstantPriceHolds(t *testing.T) {
	_, out := runOne(t, strategies.Noop{}, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", constant(50, 1.1)...),
	})

	assert.Equal(t, 50, out.Ticks)
	assert.Len(t, out.EquityCurve, 50)
	assert.Empty(t, out.Trades)
	assert.Equal(t, 0, out.Report.TotalTrades)
	assert.Zero(t, out.Report.TotalReturn)
	assert.Zero(t, out.Report.SharpeRatio)
	assert.Zero(t, out.Report.MaxDrawdown)
}

func TestRisingPriceTakesProfit(t *testing.T) {
	_, out := runOne(t, buyAt0("EURUSD"), Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", linear(100, 1.0, 1.1)...),
	})

	require.Len(t, out.Trades, 1)
	tr := out.Trades[0]
	assert.Equal(t, sim.StatusClosed, tr.Status)
	assert.Equal(t, sim.ReasonTakeProfit, tr.Reason)
	assert.Equal(t, t0, tr.EntryTime)
	assert.InDelta(t, 1.0, tr.EntryPrice, 1e-12)
	assert.InDelta(t, 0.998, tr.StopLoss, 1e-12)
	assert.InDelta(t, 1.004, tr.TakeProfit, 1e-12)
	// 10% of cash at 1.0
	assert.InDelta(t, 10000, tr.Quantity, 1e-6)
	assert.GreaterOrEqual(t, tr.ExitPrice, tr.TakeProfit)
	assert.Greater(t, tr.PnL, 0.0)

	assert.Equal(t, 1, out.Report.TotalTrades)
	assert.Equal(t, 1.0, out.Report.WinRate)
	assert.True(t, math.IsInf(out.Report.ProfitFactor, 1))
	assert.InDelta(t, 100000+tr.PnL, out.Report.FinalCapital, 1e-6)
}

func TestRisingPriceEndOfData(t *testing.T) {
	// target out of reach, so the position is closed on the last tick
	_, out := runOne(t, buyAt0("EURUSD"), Options{CloseAtEnd: true}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", linear(100, 1.0, 1.003)...),
	})

	require.Len(t, out.Trades, 1)
	tr := out.Trades[0]
	assert.Equal(t, sim.ReasonEndOfData, tr.Reason)
	assert.Equal(t, t0.Add(99*time.Hour), tr.ExitTime)
	assert.InDelta(t, 1.003, tr.ExitPrice, 1e-12)
	assert.Greater(t, tr.PnL, 0.0)
	assert.Equal(t, 1.0, out.Report.WinRate)

	last := out.EquityCurve[len(out.EquityCurve)-1]
	assert.Zero(t, last.PositionsValue)
	assert.InDelta(t, 100000+tr.PnL, last.Cash, 1e-6)
}

func TestGapThroughStopClosesAtClose(t *testing.T) {
	_, out := runOne(t, buyAt0("EURUSD"), Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 0.999, 0.99, 0.99),
	})

	require.Len(t, out.Trades, 1)
	tr := out.Trades[0]
	assert.Equal(t, sim.ReasonStopLoss, tr.Reason)
	assert.Equal(t, t0.Add(2*time.Hour), tr.ExitTime)
	assert.InDelta(t, 0.99, tr.ExitPrice, 1e-12)
	assert.NotEqual(t, tr.StopLoss, tr.ExitPrice)
	assert.InDelta(t, -100, tr.PnL, 1e-6)
	assert.Zero(t, out.Report.ProfitFactor)
}

func TestOversizedOrderRejected(t *testing.T) {
	strat := &scripted{signals: []market.Signal{
		{Symbol: "EURUSD", Action: market.Buy, Confidence: 0.9, Quantity: 20000},
	}}
	r, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0, 1.0),
	})

	assert.Empty(t, out.Trades)
	assert.Equal(t, 1, out.Rejected)
	assert.Equal(t, 100000.0, r.Ledger().Cash())
	for _, pt := range out.EquityCurve {
		assert.Equal(t, 100000.0, pt.Equity)
	}
}

func TestConfidenceThreshold(t *testing.T) {
	strat := &scripted{signals: []market.Signal{
		{Symbol: "EURUSD", Action: market.Buy, Confidence: ConfidenceThreshold},
		{Symbol: "EURUSD", Action: market.Sell, Confidence: 0.2},
	}}
	_, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0, 1.0),
	})
	assert.Empty(t, out.Trades)
	assert.Zero(t, out.Rejected)

	// just over the bar is enough
	strat = &scripted{signals: []market.Signal{
		{Symbol: "EURUSD", Action: market.Buy, Confidence: ConfidenceThreshold + 0.01},
	}}
	_, out = runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0, 1.0),
	})
	require.Len(t, out.Trades, 1)
	// sized by the fixed policy: 0.2% stop, notional capped at 10% of cash
	assert.InDelta(t, 0.998, out.Trades[0].StopLoss, 1e-12)
	assert.InDelta(t, 10000, out.Trades[0].Quantity, 1e-6)
}

func TestNaNConfidenceIsOracleFailure(t *testing.T) {
	strat := &scripted{signals: []market.Signal{
		{Symbol: "EURUSD", Action: market.Buy, Confidence: math.NaN()},
	}}
	r, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0, 1.0),
	})

	assert.Empty(t, out.Trades)
	assert.Equal(t, 1, out.OracleFails)
	assert.Zero(t, out.Rejected)
	assert.Equal(t, 100000.0, r.Ledger().Cash())
}

func TestApplyIgnoresNaNConfidence(t *testing.T) {
	tl, err := Align(map[string][]market.Bar{"EURUSD": series("EURUSD", 1.0)}, time.Time{}, time.Time{}, time.Hour)
	require.NoError(t, err)
	r := &Runner{ledger: sim.NewLedger(1000)}
	snap := tl.Snapshot(t0, market.DefaultSpreadHalf)

	sig := market.Signal{Symbol: "EURUSD", Action: market.Buy, Confidence: math.NaN()}
	require.NoError(t, r.apply(Options{}.withDefaults(), sig, snap, t0, logging.Discard()))
	assert.Empty(t, r.ledger.TradeLog())
}

func TestReversalClosesFirst(t *testing.T) {
	strat := &scripted{signals: []market.Signal{
		{Symbol: "EURUSD", Action: market.Buy, Confidence: 0.9},
		{Action: market.Hold},
		{Symbol: "EURUSD", Action: market.Sell, Confidence: 0.9},
	}}
	r, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.001, 1.002, 1.002),
	})

	require.Len(t, out.Trades, 2)
	first, second := out.Trades[0], out.Trades[1]
	assert.Equal(t, sim.ReasonReversal, first.Reason)
	assert.Equal(t, t0.Add(2*time.Hour), first.ExitTime)
	assert.InDelta(t, 1.002, first.ExitPrice, 1e-12)
	assert.Equal(t, first.ExitTime, second.EntryTime)
	assert.Equal(t, first.ExitPrice, second.EntryPrice)
	assert.Equal(t, market.Sell, second.Action)
	assert.True(t, second.IsOpen())

	open := r.Ledger().OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, market.Sell, open[0].Action)
}

func TestSignalSymbolResolution(t *testing.T) {
	// an unnamed signal with one symbol in the snapshot targets that symbol
	strat := &scripted{signals: []market.Signal{{Action: market.Buy, Confidence: 0.9}}}
	_, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0),
	})
	require.Len(t, out.Trades, 1)
	assert.Equal(t, "EURUSD", out.Trades[0].Symbol)

	// a signal for a symbol absent from the tick is dropped
	strat = &scripted{signals: []market.Signal{{Symbol: "GBPUSD", Action: market.Buy, Confidence: 0.9}}}
	_, out = runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0, 1.0),
	})
	assert.Empty(t, out.Trades)
	assert.Equal(t, 1, out.Rejected)
}

func TestOracleFailureHolds(t *testing.T) {
	calls := 0
	strat := strategies.Func{ID: "flaky", Fn: func(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
		calls++
		switch calls {
		case 1:
			return market.Signal{}, errors.New("model offline")
		case 2:
			panic("index out of range")
		case 3:
			return market.Signal{Symbol: "EURUSD", Action: market.Buy, Confidence: 7}, nil
		}
		return market.HoldSignal(), nil
	}}
	_, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", constant(5, 1.0)...),
	})

	assert.Equal(t, 5, calls)
	assert.Equal(t, 3, out.OracleFails)
	assert.Equal(t, 5, out.Ticks)
	assert.Empty(t, out.Trades)
}

func TestPredictWrapsErrOracle(t *testing.T) {
	boom := errors.New("boom")
	_, err := predict(context.Background(), strategies.Func{ID: "x", Fn: func(context.Context, market.Snapshot) (market.Signal, error) {
		return market.Signal{}, boom
	}}, market.Snapshot{})
	assert.ErrorIs(t, err, strategies.ErrOracle)
	assert.ErrorIs(t, err, boom)
}

func TestStrategyCannotMutateSnapshot(t *testing.T) {
	strat := strategies.Func{ID: "vandal", Fn: func(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
		for k := range snap {
			delete(snap, k)
		}
		return market.Signal{Symbol: "EURUSD", Action: market.Buy, Confidence: 0.9}, nil
	}}
	_, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", 1.0),
	})
	assert.Len(t, out.Trades, 1)
}

func TestNaNBarNeverReachesEquity(t *testing.T) {
	eur := series("EURUSD", 1.0, 1.0, 1.0, 1.0)
	eur[2].Close = math.NaN()
	_, out := runOne(t, buyAt0("EURUSD"), Options{}, map[string][]market.Bar{"EURUSD": eur})

	require.Len(t, out.Trades, 1)
	assert.Equal(t, 3, out.Ticks)
	for _, pt := range out.EquityCurve {
		assert.False(t, math.IsNaN(pt.Equity))
	}
	assert.False(t, math.IsNaN(out.Report.SharpeRatio))
	assert.False(t, math.IsNaN(out.Report.MaxDrawdown))
}

func TestEquityIdentity(t *testing.T) {
	data := map[string][]market.Bar{
		"EURUSD": series("EURUSD", wave(300)...),
		"GBPUSD": series("GBPUSD", linear(300, 1.3, 1.25)...),
	}
	strat, err := strategies.NewEMACrossFromParams(strategies.Params{"fast": 5, "slow": 20})
	require.NoError(t, err)

	_, out := runOne(t, strat, Options{CloseAtEnd: true}, data)
	require.NotEmpty(t, out.Trades)

	closes := make(map[string]map[time.Time]float64)
	for sym, bars := range data {
		closes[sym] = make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			closes[sym][b.Time] = b.Close
		}
	}

	// rebuild each tick's book value from the trade log and raw closes
	held := 0
	for i, pt := range out.EquityCurve {
		var book float64
		for _, tr := range out.Trades {
			if tr.EntryTime.After(pt.Time) || (!tr.IsOpen() && !tr.ExitTime.After(pt.Time)) {
				continue
			}
			held++
			book += tr.BookValue(closes[tr.Symbol][pt.Time])
		}
		assert.InDelta(t, pt.Equity, pt.Cash+book, 1e-9*math.Abs(pt.Equity), "tick %d", i)
		if i > 0 {
			assert.True(t, out.EquityCurve[i-1].Time.Before(pt.Time))
		}
	}
	assert.Positive(t, held)

	// every position was closed at the end, so cash is capital plus realized pnl
	var realized float64
	for _, tr := range out.Trades {
		require.Equal(t, sim.StatusClosed, tr.Status)
		realized += tr.PnL
	}
	last := out.EquityCurve[len(out.EquityCurve)-1]
	assert.InDelta(t, 100000+realized, last.Cash, 1e-6)
	assert.InDelta(t, realized, out.Report.TotalPnL, 1e-6)
}

func TestOnePositionPerSymbol(t *testing.T) {
	strat, err := strategies.NewEMACrossFromParams(strategies.Params{"fast": 3, "slow": 8})
	require.NoError(t, err)
	_, out := runOne(t, strat, Options{}, map[string][]market.Bar{
		"EURUSD": series("EURUSD", wave(400)...),
	})

	// replay the trade log and check no two positions overlap
	for i := 1; i < len(out.Trades); i++ {
		prev, cur := out.Trades[i-1], out.Trades[i]
		require.False(t, prev.IsOpen(), "trade %d still open when %d opened", prev.ID, cur.ID)
		assert.False(t, cur.EntryTime.Before(prev.ExitTime))
	}
}

func TestRunCanceled(t *testing.T) {
	tl, err := Align(map[string][]market.Bar{"EURUSD": series("EURUSD", 1, 1, 1)}, time.Time{}, time.Time{}, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Strategy: strategies.Noop{}, Timeline: tl, Capital: 1000, Logger: logging.Discard()}
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRequires(t *testing.T) {
	tl, err := Align(map[string][]market.Bar{"EURUSD": series("EURUSD", 1)}, time.Time{}, time.Time{}, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = (&Runner{Timeline: tl, Capital: 1}).Run(ctx)
	assert.Error(t, err)
	_, err = (&Runner{Strategy: strategies.Noop{}, Capital: 1}).Run(ctx)
	assert.Error(t, err)
	_, err = (&Runner{Strategy: strategies.Noop{}, Timeline: tl}).Run(ctx)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
