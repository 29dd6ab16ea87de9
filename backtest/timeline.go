package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Timeline is the merged, strictly ascending sequence of tick times for a
// set of symbols, with each symbol's bars indexed by time.
type Timeline struct {
	Times    []time.Time
	Symbols  []string // symbols with data, sorted
	Dropped  []string // requested symbols with no bars in range
	Interval time.Duration

	// Bars left out per symbol: repeated timestamps and bars that fail
	// market.Bar.Validate.
	Duplicates map[string]int
	Invalid    map[string]int

	series map[string][]market.Bar
	index  map[string]map[int64]int // symbol -> unix nanos -> bar index
}

// Align merges per-symbol series into one timeline. Bars outside
// [start, end] are ignored (zero bounds are open) and duplicate timestamps
// within a symbol keep the first bar. Bars that fail validation are left
// out and counted. A symbol left with no bars is dropped. If every symbol is dropped Align returns ErrDataUnavailable.
func Align(series map[string][]market.Bar, start, end time.Time, interval time.Duration) (*Timeline, error) {
	tl := &Timeline{
		Interval:   interval,
		Duplicates: make(map[string]int),
		Invalid:    make(map[string]int),
		series:     make(map[string][]market.Bar),
		index:      make(map[string]map[int64]int),
	}

	names := make([]string, 0, len(series))
	for sym := range series {
		names = append(names, sym)
	}
	sort.Strings(names)

	seen := make(map[int64]time.Time)
	for _, sym := range names {
		var in []market.Bar
		for _, b := range series[sym] {
			if !inWindow(b.Time, start, end) {
				continue
			}
			if b.Validate() != nil {
				tl.Invalid[sym]++
				continue
			}
			in = append(in, b)
		}
		bars, dups := market.SortBars(in)
		if dups > 0 {
			tl.Duplicates[sym] = dups
		}
		if len(bars) == 0 {
			tl.Dropped = append(tl.Dropped, sym)
			continue
		}

		idx := make(map[int64]int, len(bars))
		for i, b := range bars {
			k := b.Time.UnixNano()
			idx[k] = i
			if _, ok := seen[k]; !ok {
				seen[k] = b.Time
			}
		}
		tl.Symbols = append(tl.Symbols, sym)
		tl.series[sym] = bars
		tl.index[sym] = idx
	}

	if len(tl.Symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols %v", ErrDataUnavailable, names)
	}

	tl.Times = make([]time.Time, 0, len(seen))
	for _, t := range seen {
		tl.Times = append(tl.Times, t)
	}
	sort.Slice(tl.Times, func(i, j int) bool { return tl.Times[i].Before(tl.Times[j]) })
	return tl, nil
}

func (tl *Timeline) Len() int { return len(tl.Times) }

// Bar returns symbol's bar at ts, if it has one.
func (tl *Timeline) Bar(symbol string, ts time.Time) (market.Bar, bool) {
	i, ok := tl.index[symbol][ts.UnixNano()]
	if !ok {
		return market.Bar{}, false
	}
	return tl.series[symbol][i], true
}

// Bars returns symbol's aligned bars.
func (tl *Timeline) Bars(symbol string) []market.Bar {
	return tl.series[symbol]
}

// Snapshot builds the quotes for every symbol with a bar at ts. Symbols
// without a bar at ts are absent, so the snapshot may be empty.
func (tl *Timeline) Snapshot(ts time.Time, spreadHalf float64) market.Snapshot {
	snap := make(market.Snapshot, len(tl.Symbols))
	for _, sym := range tl.Symbols {
		if b, ok := tl.Bar(sym, ts); ok {
			snap[sym] = market.NewQuote(b, spreadHalf)
		}
	}
	return snap
}

// Gaps reports runs of missing bars for symbol at the timeline interval.
func (tl *Timeline) Gaps(symbol string) []market.Gap {
	bars := tl.series[symbol]
	times := make([]time.Time, len(bars))
	for i, b := range bars {
		times[i] = b.Time
	}
	return market.FindGaps(times, tl.Interval)
}

// GapStats summarizes Gaps for symbol.
func (tl *Timeline) GapStats(symbol string) market.GapStats {
	return market.Stats(len(tl.series[symbol]), tl.Gaps(symbol))
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
