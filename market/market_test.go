package market

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{
		"BUY":   Buy,
		"sell":  Sell,
		" Hold": Hold,
		"":      Hold,
	} {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAction("short")
	assert.Error(t, err)

	assert.True(t, Buy.Tradable())
	assert.True(t, Sell.Tradable())
	assert.False(t, Hold.Tradable())
}

func TestSignalJSON(t *testing.T) {
	var sig Signal
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"EURUSD","action":"buy","confidence":0.8}`), &sig))
	assert.Equal(t, Signal{Symbol: "EURUSD", Action: Buy, Confidence: 0.8}, sig)

	b, err := json.Marshal(Signal{Symbol: "GBPUSD", Action: Sell, Confidence: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"GBPUSD","action":"SELL","confidence":1}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"action":"flat"}`), &sig))
	assert.Equal(t, HoldSignal(), Signal{Action: Hold})
}

func TestQuoteFromBar(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	b := Bar{Symbol: "EURUSD", Time: ts, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 10}

	q := NewQuote(b, 0.0002)
	assert.InDelta(t, 1.1498, q.Bid, 1e-12)
	assert.InDelta(t, 1.1502, q.Ask, 1e-12)
	assert.Equal(t, 1.15, q.Last)
	assert.InDelta(t, 1.15, q.Mid(), 1e-12)
	assert.InDelta(t, 0.0004, q.Spread(), 1e-12)
	assert.Equal(t, ts, q.Time)

	assert.InDelta(t, 0.2, b.Range(), 1e-12)
	assert.InDelta(t, 0.05, b.Change(), 1e-12)
}

func TestBarValidate(t *testing.T) {
	ok := Bar{Symbol: "EURUSD", Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 10}
	assert.NoError(t, ok.Validate())
	assert.NoError(t, Bar{Close: 1.1}.Validate(), "close-only bars are fine")

	tests := []struct {
		name   string
		mutate func(b *Bar)
		errMsg string
	}{
		{"nan close", func(b *Bar) { b.Close = math.NaN() }, "close"},
		{"inf close", func(b *Bar) { b.Close = math.Inf(1) }, "close"},
		{"zero close", func(b *Bar) { b.Close = 0 }, "close"},
		{"negative open", func(b *Bar) { b.Open = -1 }, "open"},
		{"inf high", func(b *Bar) { b.High = math.Inf(1) }, "high"},
		{"nan low", func(b *Bar) { b.Low = math.NaN() }, "low"},
		{"nan volume", func(b *Bar) { b.Volume = math.NaN() }, "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ok
			tt.mutate(&b)
			err := b.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSnapshot(t *testing.T) {
	snap := Snapshot{
		"XAUUSD": {Close: 2000},
		"EURUSD": {Close: 1.1},
	}
	assert.Equal(t, []string{"EURUSD", "XAUUSD"}, snap.Symbols())

	c, ok := snap.Close("XAUUSD")
	assert.True(t, ok)
	assert.Equal(t, 2000.0, c)

	_, ok = snap.Close("GBPUSD")
	assert.False(t, ok)
}

func TestNormalizeSymbolAndPipSize(t *testing.T) {
	assert.Equal(t, "EURUSD", NormalizeSymbol(" eur/usd "))
	assert.Equal(t, "EURUSD", NormalizeSymbol("EUR_USD"))
	assert.Equal(t, "USDJPY", NormalizeSymbol("usd-jpy"))

	assert.InDelta(t, 0.0001, PipSize("EURUSD"), 1e-15)
	assert.InDelta(t, 0.01, PipSize("usd_jpy"), 1e-15)
	assert.InDelta(t, 0.01, PipSize("XAUUSD"), 1e-15)
	assert.InDelta(t, 0.0001, PipSize("ABCXYZ"), 1e-15)
}

func TestIntervals(t *testing.T) {
	for _, tc := range []struct {
		tf string
		d  time.Duration
	}{
		{"M1", time.Minute}, {"M15", 15 * time.Minute}, {"H1", time.Hour}, {"H4", 4 * time.Hour},
		{"D1", 24 * time.Hour}, {"W1", 7 * 24 * time.Hour}, {"MN1", 30 * 24 * time.Hour},
	} {
		got, err := IntervalDuration(tc.tf)
		require.NoError(t, err, tc.tf)
		assert.Equal(t, tc.d, got, tc.tf)

		back, err := IntervalName(tc.d)
		require.NoError(t, err)
		assert.Equal(t, tc.tf, back)
	}

	d, err := IntervalDuration(" 1h ")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	_, err = IntervalDuration("H2")
	assert.ErrorContains(t, err, `unsupported interval "H2"`)
	_, err = IntervalDuration("")
	assert.Error(t, err)
	_, err = IntervalName(90 * time.Second)
	assert.Error(t, err)
}
