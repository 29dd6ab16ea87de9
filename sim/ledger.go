// Package sim holds the simulated portfolio: cash, open positions and the
// trade log for one backtest run.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
)

// Ledger is the single source of truth for capital during a run.
//
// A Ledger is owned by one replay loop and is not safe for concurrent use.
// Every mutation either fully applies to cash, the open set and the trade
// log, or returns an error and changes nothing.
type Ledger struct {
	cash   float64
	open   map[string]*Position
	trades []*Position
	nextID int
}

func NewLedger(cash float64) *Ledger {
	return &Ledger{
		cash: cash,
		open: make(map[string]*Position),
	}
}

func (l *Ledger) Cash() float64 { return l.cash }

// Open debits the order's notional and records a new open position.
func (l *Ledger) Open(o risk.Order, ts time.Time) (Position, error) {
	if _, ok := l.open[o.Symbol]; ok {
		return Position{}, fmt.Errorf("open %s: %w", o.Symbol, ErrPositionExists)
	}
	if !o.Action.Tradable() || o.Quantity <= 0 || o.Price <= 0 {
		return Position{}, fmt.Errorf("open %s: %w", o.Symbol, risk.ErrInvalidOrder)
	}
	notional := o.Quantity * o.Price
	if notional > l.cash {
		return Position{}, fmt.Errorf("open %s: notional %.2f over cash %.2f: %w",
			o.Symbol, notional, l.cash, risk.ErrInsufficientCapital)
	}

	l.nextID++
	p := &Position{
		ID:         l.nextID,
		Symbol:     o.Symbol,
		Action:     o.Action,
		Quantity:   o.Quantity,
		EntryPrice: o.Price,
		EntryTime:  ts,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Confidence: o.Confidence,
		Status:     StatusOpen,
		mark:       o.Price,
	}

	l.cash -= notional
	l.open[p.Symbol] = p
	l.trades = append(l.trades, p)
	return *p, nil
}

// Close realizes the position in symbol at exit.
func (l *Ledger) Close(symbol string, exit float64, ts time.Time, reason string) (Position, error) {
	p, ok := l.open[symbol]
	if !ok {
		return Position{}, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}
	l.closePosition(p, exit, ts, reason)
	return *p, nil
}

func (l *Ledger) closePosition(p *Position, exit float64, ts time.Time, reason string) {
	p.ExitPrice = exit
	p.ExitTime = ts
	p.PnL = pnl(p.Action, p.Quantity, p.EntryPrice, exit)
	p.Reason = reason
	p.Status = StatusClosed
	p.mark = exit

	l.cash += closeCredit(p.Action, p.Quantity, p.EntryPrice, exit)
	delete(l.open, p.Symbol)
}

// Update marks every open position present in the snapshot to its close and
// closes those whose stop or target has been crossed, at that close and ts.
// Positions are visited in symbol order. The closed positions are returned.
func (l *Ledger) Update(snap market.Snapshot, ts time.Time) []Position {
	var closed []Position
	for _, sym := range l.openSymbols() {
		q, ok := snap[sym]
		if !ok {
			continue
		}
		p := l.open[sym]
		p.mark = q.Close
		if reason := exitReason(p, q.Close); reason != "" {
			l.closePosition(p, q.Close, ts, reason)
			closed = append(closed, *p)
		}
	}
	return closed
}

// CloseAll closes every open position at its last mark.
func (l *Ledger) CloseAll(ts time.Time, reason string) []Position {
	var closed []Position
	for _, sym := range l.openSymbols() {
		p := l.open[sym]
		l.closePosition(p, p.Mark(), ts, reason)
		closed = append(closed, *p)
	}
	return closed
}

// PositionsValue sums book values using the snapshot close where present
// and the last known mark otherwise. It does not mutate the ledger.
func (l *Ledger) PositionsValue(snap market.Snapshot) float64 {
	var v float64
	for _, sym := range l.openSymbols() {
		p := l.open[sym]
		price := p.Mark()
		if c, ok := snap.Close(sym); ok {
			price = c
		}
		v += p.BookValue(price)
	}
	return v
}

// MarkToMarket returns cash plus the book value of all open positions.
func (l *Ledger) MarkToMarket(snap market.Snapshot) float64 {
	return l.cash + l.PositionsValue(snap)
}

func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.open[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// OpenPositions returns copies of the open positions sorted by symbol.
func (l *Ledger) OpenPositions() []Position {
	out := make([]Position, 0, len(l.open))
	for _, sym := range l.openSymbols() {
		out = append(out, *l.open[sym])
	}
	return out
}

// TradeLog returns copies of every position ever opened, in open order.
func (l *Ledger) TradeLog() []Position {
	out := make([]Position, len(l.trades))
	for i, p := range l.trades {
		out[i] = *p
	}
	return out
}

// ClosedTrades returns copies of the closed positions in open order.
func (l *Ledger) ClosedTrades() []Position {
	out := make([]Position, 0, len(l.trades))
	for _, p := range l.trades {
		if !p.IsOpen() {
			out = append(out, *p)
		}
	}
	return out
}

func (l *Ledger) openSymbols() []string {
	syms := make([]string, 0, len(l.open))
	for sym := range l.open {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}
