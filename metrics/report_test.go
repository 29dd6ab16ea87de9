package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func curveOf(equity ...float64) []EquityPoint {
	a := NewAccumulator(equity[0])
	for i, e := range equity {
		a.Record(t0.Add(time.Duration(i)*time.Hour), e, e)
	}
	return a.Curve()
}

func closed(pnl float64, hours int) sim.Position {
	return sim.Position{
		Symbol:    "EURUSD",
		Action:    market.Buy,
		Status:    sim.StatusClosed,
		PnL:       pnl,
		EntryTime: t0,
		ExitTime:  t0.Add(time.Duration(hours) * time.Hour),
	}
}

func TestAccumulatorReturns(t *testing.T) {
	a := NewAccumulator(100)
	a.Record(t0, 100, 100)
	assert.Empty(t, a.Returns())

	a.Record(t0.Add(time.Hour), 110, 50)
	a.Record(t0.Add(2*time.Hour), 99, 99)

	r := a.Returns()
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)

	c := a.Curve()
	require.Len(t, c, 3)
	assert.InDelta(t, 60.0, c[1].PositionsValue, 1e-12)
	assert.Equal(t, 99.0, a.Final())
	assert.Equal(t, 3, a.Len())
}

func TestAccumulatorZeroPreviousEquity(t *testing.T) {
	a := NewAccumulator(0)
	a.Record(t0, 0, 0)
	a.Record(t0.Add(time.Hour), 10, 10)
	assert.Equal(t, []float64{0}, a.Returns())
}

func TestComputeNoTrades(t *testing.T) {
	a := NewAccumulator(10000)
	for i := 0; i < 5; i++ {
		a.Record(t0.Add(time.Duration(i)*time.Hour), 10000, 10000)
	}
	r := Compute(10000, a.Curve(), a.Returns(), nil)

	assert.Equal(t, 0.0, r.TotalReturn)
	assert.Equal(t, 0.0, r.SharpeRatio)
	assert.Equal(t, 0.0, r.WinRate)
	assert.Equal(t, 0.0, r.ProfitFactor)
	assert.Equal(t, 0.0, r.MaxDrawdown)
	assert.Equal(t, 0, r.TotalTrades)
	assert.Equal(t, 10000.0, r.FinalCapital)
}

func TestComputeEmptyCurve(t *testing.T) {
	r := Compute(5000, nil, nil, nil)
	assert.Equal(t, 5000.0, r.FinalCapital)
	assert.Equal(t, 0.0, r.TotalReturn)
	assert.Empty(t, r.MonthlyReturns)
}

func TestComputeTrades(t *testing.T) {
	trades := []sim.Position{
		closed(30, 2),
		closed(-10, 4),
		closed(20, 6),
		closed(0, 0),
		{Symbol: "GBPUSD", Status: sim.StatusOpen, PnL: 0},
	}
	curve := curveOf(1000, 1030, 1020, 1040)
	r := Compute(1000, curve, nil, trades)

	assert.Equal(t, 4, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.InDelta(t, 0.5, r.WinRate, 1e-12)
	assert.InDelta(t, 5.0, r.ProfitFactor, 1e-12)
	assert.InDelta(t, 40.0, r.TotalPnL, 1e-12)
	assert.InDelta(t, 3.0, r.AvgTradeDuration, 1e-12)
	assert.InDelta(t, 0.04, r.TotalReturn, 1e-12)
}

func TestProfitFactorInfinity(t *testing.T) {
	assert.True(t, math.IsInf(ProfitFactor(10, 0), 1))
	assert.Equal(t, 0.0, ProfitFactor(0, 0))
	assert.Equal(t, 0.0, ProfitFactor(0, 5))

	r := Compute(100, curveOf(100, 110), nil, []sim.Position{closed(10, 1)})
	assert.True(t, math.IsInf(r.ProfitFactor, 1))
	assert.Equal(t, 1.0, r.WinRate)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"flat", []float64{100, 100, 100}, 0},
		{"rising", []float64{100, 101, 105, 110}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 0.25},
		{"drop from start", []float64{100, 80, 90}, 0.20},
		{"deepest wins", []float64{100, 90, 200, 150, 210}, 0.25},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dd := MaxDrawdown(curveOf(tt.equity...))
			assert.GreaterOrEqual(t, dd, 0.0)
			assert.InDelta(t, tt.want, dd, 1e-12)
		})
	}
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}))
	assert.Equal(t, 0.0, Sharpe([]float64{0.5, 0.5, 0.5}))

	// one ulp apart is still flat
	next := math.Nextafter(0.01, 1)
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, next, 0.01, next}))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, math.NaN(), 0.01}))

	// mean 0.01, population stdev 0.01
	got := Sharpe([]float64{0.0, 0.02})
	assert.InDelta(t, math.Sqrt(252), got, 1e-9)
}

func TestMonthly(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	curve := []EquityPoint{
		{Time: jan, Equity: 1000},
		{Time: jan.Add(24 * time.Hour), Equity: 1100},
		{Time: feb, Equity: 1210},
		{Time: mar, Equity: 1089},
	}

	got := Monthly(1000, curve)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-01", got[0].Month)
	assert.InDelta(t, 0.10, got[0].Return, 1e-12)
	assert.Equal(t, "2024-02", got[1].Month)
	assert.InDelta(t, 0.10, got[1].Return, 1e-12)
	assert.Equal(t, "2024-03", got[2].Month)
	assert.InDelta(t, -0.10, got[2].Return, 1e-12)
}
