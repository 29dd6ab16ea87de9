package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// ATR is Wilder's Average True Range. The first bar only seeds the previous
// close, so Period+1 bars are needed.
type ATR struct {
	Period int

	prev     market.Bar
	havePrev bool
	s        seeded
}

func NewATR(period int) *ATR {
	return &ATR{Period: period, s: newWilder(period)}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.Period) }
func (a *ATR) Warmup() int  { return a.Period + 1 }

func (a *ATR) Reset() {
	a.havePrev = false
	a.s.reset()
}

func (a *ATR) Update(b market.Bar) {
	if a.havePrev {
		a.s.add(trueRange(b, a.prev))
	}
	a.prev, a.havePrev = b, true
}

func (a *ATR) Ready() bool    { return a.s.ready() }
func (a *ATR) Value() float64 { return a.s.value() }

// trueRange is the widest of high-low and the distances from the previous
// close to this bar's high and low.
func trueRange(cur, prev market.Bar) float64 {
	return max(cur.High-cur.Low, math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close))
}
