// Package metrics records the equity curve of a run and derives its
// performance statistics.
package metrics

import "time"

// EquityPoint is the account value at one processed tick.
type EquityPoint struct {
	Time           time.Time `json:"timestamp"`
	Equity         float64   `json:"equity"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
}

// Accumulator is append-only and owned by a single replay loop.
type Accumulator struct {
	initial float64
	curve   []EquityPoint
	returns []float64
}

func NewAccumulator(initial float64) *Accumulator {
	return &Accumulator{initial: initial}
}

// Record appends an equity point and, when a previous point exists, the
// period return against it. A zero previous equity yields a zero return.
func (a *Accumulator) Record(ts time.Time, equity, cash float64) EquityPoint {
	pt := EquityPoint{
		Time:           ts,
		Equity:         equity,
		Cash:           cash,
		PositionsValue: equity - cash,
	}
	if n := len(a.curve); n > 0 {
		prev := a.curve[n-1].Equity
		r := 0.0
		if prev != 0 {
			r = (equity - prev) / prev
		}
		a.returns = append(a.returns, r)
	}
	a.curve = append(a.curve, pt)
	return pt
}

func (a *Accumulator) Initial() float64 { return a.initial }

func (a *Accumulator) Len() int { return len(a.curve) }

// Curve returns a copy of the equity curve.
func (a *Accumulator) Curve() []EquityPoint {
	out := make([]EquityPoint, len(a.curve))
	copy(out, a.curve)
	return out
}

// Returns returns a copy of the per-tick returns.
func (a *Accumulator) Returns() []float64 {
	out := make([]float64, len(a.returns))
	copy(out, a.returns)
	return out
}

// Final is the last recorded equity, or the initial capital if none.
func (a *Accumulator) Final() float64 {
	if len(a.curve) == 0 {
		return a.initial
	}
	return a.curve[len(a.curve)-1].Equity
}
