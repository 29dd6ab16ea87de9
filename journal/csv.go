package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/backtester/backtest"
)

var (
	tradeHeader  = []string{"trade_id", "symbol", "action", "quantity", "entry_price", "exit_price", "stop_loss", "take_profit", "open_time", "close_time", "realized_pl", "status", "reason"}
	equityHeader = []string{"time", "equity", "cash", "positions_value"}
)

// CSVJournal writes trades and equity to a pair of CSV files.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(tf), csv.NewWriter(ef), tf, ef}
	if err := j.trades.Write(tradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.equity.Write(equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	closeTime := ""
	if !t.CloseTime.IsZero() {
		closeTime = t.CloseTime.UTC().Format(time.RFC3339)
	}
	return j.trades.Write([]string{
		t.TradeID,
		t.Symbol,
		t.Action,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.StopLoss),
		f(t.TakeProfit),
		t.OpenTime.UTC().Format(time.RFC3339),
		closeTime,
		Money(t.RealizedPL),
		t.Status,
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339),
		Money(e.Equity),
		Money(e.Cash),
		Money(e.PositionsValue),
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	return errors.Join(j.trades.Error(), j.equity.Error(), j.tf.Close(), j.ef.Close())
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// CSV is a backtest.Sink writing <Dir>/<run_id>/trades.csv and equity.csv.
type CSV struct {
	Dir string
}

func (c CSV) Save(ctx context.Context, res *backtest.Result) error {
	dir := filepath.Join(c.Dir, res.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	j, err := NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "equity.csv"))
	if err != nil {
		return err
	}
	if err := write(j, res); err != nil {
		j.Close()
		return err
	}
	return j.Close()
}

// write streams a result into any Journal.
func write(j Journal, res *backtest.Result) error {
	for _, t := range TradeRecords(res) {
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	for _, e := range EquitySnapshots(res) {
		if err := j.RecordEquity(e); err != nil {
			return err
		}
	}
	return nil
}
