package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/backtester/market"
)

func TestPlannedRisk(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100.0, PlannedRisk(10000, 1.2000, 1.1900), 1e-9)
	// stop above entry (short) is the same magnitude
	assert.InDelta(t, 100.0, PlannedRisk(10000, 1.1900, 1.2000), 1e-9)
}

func TestRR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(1.0, 0.99, 1.02), 1e-9)
	assert.Equal(t, 0.0, RR(1.0, 1.0, 1.02))
}

func TestOrderRisk(t *testing.T) {
	t.Parallel()

	o := Order{Action: market.Sell, Quantity: 5000, Price: 1.1000, StopLoss: 1.1040, TakeProfit: 1.0920}
	assert.InDelta(t, 20.0, o.PlannedRisk(), 1e-9)
	assert.InDelta(t, 2.0, o.RR(), 1e-9)
	assert.InDelta(t, 5500.0, o.Notional(), 1e-9)
}

func TestRiskPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.01, RiskPct(100, 10000), 1e-12)
	assert.True(t, math.IsInf(RiskPct(100, 0), 1))
}

func TestStopPips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		entry, stop float64
		loc         int
		want        float64
	}{
		{"eurusd", 1.2000, 1.1900, -4, 100},
		{"usdjpy", 150.00, 149.50, -2, 50},
		{"above entry", 1.0000, 1.0100, -4, 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, StopPips(tt.entry, tt.stop, tt.loc), 1e-6)
		})
	}
}

func TestEvaluateViolations(t *testing.T) {
	t.Parallel()

	o := Order{Symbol: "EURUSD", Quantity: 20000, Price: 1.0, StopLoss: 0.998, TakeProfit: 1.004}
	d := Evaluate(DefaultPolicy(), o, 100000)
	assert.False(t, d.Allowed)
	if assert.Len(t, d.Violations, 1) {
		assert.Equal(t, "NOTIONAL_TOO_HIGH", d.Violations[0].Code)
	}
	assert.InDelta(t, 0.2, d.NotionalPct, 1e-12)
	assert.ErrorIs(t, d.Err(), ErrInsufficientCapital)

	o.Quantity = 1000
	d = Evaluate(DefaultPolicy(), o, 100000)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
	assert.InDelta(t, 2.0, d.PlannedRR, 1e-9)

	o.StopLoss = o.Price
	d = Evaluate(DefaultPolicy(), o, 100000)
	assert.ErrorIs(t, d.Err(), ErrInvalidOrder)
}
