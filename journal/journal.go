// Package journal persists backtest results: SQLite for queries, CSV files
// for spreadsheets and Org-mode reports for notes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/sim"
)

var ErrNotFound = errors.New("not found")

// TradeRecord is a trade as stored, keyed by run and position id.
type TradeRecord struct {
	RunID      string
	TradeID    string
	Symbol     string
	Action     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	CloseTime  time.Time // zero while open
	RealizedPL float64
	Status     string
	Reason     string
}

// EquitySnapshot is one point of a run's equity curve.
type EquitySnapshot struct {
	RunID          string
	Time           time.Time
	Equity         float64
	Cash           float64
	PositionsValue float64
}

// Journal records trades and equity one row at a time.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

func tradeID(runID string, p sim.Position) string {
	return fmt.Sprintf("%s-%04d", runID, p.ID)
}

// TradeRecords flattens a result's trade log.
func TradeRecords(res *backtest.Result) []TradeRecord {
	out := make([]TradeRecord, 0, len(res.Trades))
	for _, p := range res.Trades {
		out = append(out, TradeRecord{
			RunID:      res.RunID,
			TradeID:    tradeID(res.RunID, p),
			Symbol:     p.Symbol,
			Action:     p.Action.String(),
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			ExitPrice:  p.ExitPrice,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			OpenTime:   p.EntryTime,
			CloseTime:  p.ExitTime,
			RealizedPL: p.PnL,
			Status:     string(p.Status),
			Reason:     p.Reason,
		})
	}
	return out
}

// EquitySnapshots flattens a result's equity curve.
func EquitySnapshots(res *backtest.Result) []EquitySnapshot {
	out := make([]EquitySnapshot, 0, len(res.EquityCurve))
	for _, pt := range res.EquityCurve {
		out = append(out, EquitySnapshot{
			RunID:          res.RunID,
			Time:           pt.Time,
			Equity:         pt.Equity,
			Cash:           pt.Cash,
			PositionsValue: pt.PositionsValue,
		})
	}
	return out
}

// Multi saves to every sink and joins their errors.
type Multi []backtest.Sink

func (m Multi) Save(ctx context.Context, res *backtest.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Money formats a cash amount to cents without float artifacts.
func Money(x float64) string {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return fmt.Sprint(x)
	}
	return decimal.NewFromFloat(x).StringFixed(2)
}

// Pct formats a fraction as a percentage with two decimals.
func Pct(x float64) string {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return fmt.Sprint(x)
	}
	return decimal.NewFromFloat(x).Shift(2).StringFixed(2) + "%"
}

// FormatProfitFactor prints +Inf as "inf".
func FormatProfitFactor(x float64) string {
	if math.IsInf(x, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", x)
}
