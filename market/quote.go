package market

import (
	"sort"
	"time"
)

// DefaultSpreadHalf is the synthetic half spread applied around the close
// when no real quote feed is available.
const DefaultSpreadHalf = 0.0002

// Quote is the per-symbol view of one tick, synthesized from a Bar.
type Quote struct {
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Last   float64   `json:"last"`
	Time   time.Time `json:"timestamp"`
}

// NewQuote derives a quote from a bar, placing bid and ask spreadHalf
// below and above the close.
func NewQuote(b Bar, spreadHalf float64) Quote {
	return Quote{
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
		Bid:    b.Close - spreadHalf,
		Ask:    b.Close + spreadHalf,
		Last:   b.Close,
		Time:   b.Time,
	}
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Snapshot maps symbol to quote for a single replay timestamp. It is rebuilt
// every tick and never retained.
type Snapshot map[string]Quote

// Symbols returns the symbols present in the snapshot in sorted order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Close returns the close price for symbol, if present.
func (s Snapshot) Close(symbol string) (float64, bool) {
	q, ok := s[symbol]
	if !ok {
		return 0, false
	}
	return q.Close, true
}
