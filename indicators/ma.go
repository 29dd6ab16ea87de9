package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// SMA is the mean of the last Period closes, kept in a ring with a running
// sum.
type SMA struct {
	Period int

	ring []float64
	next int
	full bool
	sum  float64
}

func NewSMA(period int) *SMA {
	return &SMA{Period: period, ring: make([]float64, max(period, 0))}
}

func (m *SMA) Name() string { return fmt.Sprintf("SMA(%d)", m.Period) }
func (m *SMA) Warmup() int  { return m.Period }

func (m *SMA) Reset() {
	clear(m.ring)
	m.next, m.full, m.sum = 0, false, 0
}

func (m *SMA) Update(b market.Bar) {
	if m.Period <= 0 {
		return
	}
	m.sum += b.Close - m.ring[m.next]
	m.ring[m.next] = b.Close
	m.next++
	if m.next == m.Period {
		m.next = 0
		m.full = true
	}
}

func (m *SMA) Ready() bool { return m.full }

func (m *SMA) Value() float64 {
	if !m.full {
		return 0
	}
	return m.sum / float64(m.Period)
}

// EMA is an exponential moving average of closes seeded with the SMA of
// the first Period closes.
type EMA struct {
	Period int
	s      seeded
}

func NewEMA(period int) *EMA {
	return &EMA{Period: period, s: newEMASmoother(period)}
}

func (e *EMA) Name() string        { return fmt.Sprintf("EMA(%d)", e.Period) }
func (e *EMA) Warmup() int         { return e.Period }
func (e *EMA) Reset()              { e.s.reset() }
func (e *EMA) Update(b market.Bar) { e.s.add(b.Close) }
func (e *EMA) Ready() bool         { return e.s.ready() }
func (e *EMA) Value() float64      { return e.s.value() }
