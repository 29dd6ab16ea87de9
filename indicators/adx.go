package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// ADX is Wilder's Average Directional Index, a 0..100 measure of trend
// strength regardless of direction.
//
// True range and directional movement are Wilder-smoothed over Period. Once
// they are seeded every bar yields a DX, and ADX is the Wilder-smoothed DX,
// itself seeded with the mean of the first Period values. A bar with no
// range or no directional movement contributes a DX of 0.
type ADX struct {
	Period int

	prev     market.Bar
	havePrev bool

	tr, plus, minus seeded
	adx             seeded
}

func NewADX(period int) *ADX {
	a := &ADX{Period: period}
	a.Reset()
	return a
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.Period) }

// Warmup is one seed bar, Period-1 more to seed the smoothers, then Period
// DX values.
func (a *ADX) Warmup() int { return 2 * a.Period }

func (a *ADX) Reset() {
	a.havePrev = false
	a.tr = newWilder(a.Period)
	a.plus = newWilder(a.Period)
	a.minus = newWilder(a.Period)
	a.adx = newWilder(a.Period)
}

func (a *ADX) Update(b market.Bar) {
	if !a.havePrev {
		a.prev, a.havePrev = b, true
		return
	}

	up := b.High - a.prev.High
	down := a.prev.Low - b.Low
	var pdm, mdm float64
	switch {
	case up > down && up > 0:
		pdm = up
	case down > up && down > 0:
		mdm = down
	}

	a.tr.add(trueRange(b, a.prev))
	a.plus.add(pdm)
	a.minus.add(mdm)
	a.prev = b

	if !a.tr.ready() {
		return
	}
	a.adx.add(dx(a.tr.value(), a.plus.value(), a.minus.value()))
}

func dx(tr, plus, minus float64) float64 {
	if tr == 0 {
		return 0
	}
	pdi := 100 * plus / tr
	mdi := 100 * minus / tr
	if pdi+mdi == 0 {
		return 0
	}
	return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
}

func (a *ADX) Ready() bool    { return a.adx.ready() }
func (a *ADX) Value() float64 { return a.adx.value() }
