package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/backtester/backtest"
)

// SQLite stores runs, trades and equity curves. It implements
// backtest.Sink and is safe for concurrent use.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; sweeps serialize through the mutex anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertTrade = `
	INSERT INTO trades
	(run_id, trade_id, symbol, action, quantity, entry_price, exit_price, stop_loss, take_profit,
	 open_time, close_time, realized_pl, status, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertEquity = `
	INSERT INTO equity (run_id, time, equity, cash, positions_value)
	VALUES (?, ?, ?, ?, ?)`

func recordTrade(ctx context.Context, x execer, t TradeRecord) error {
	var closeTime any
	if !t.CloseTime.IsZero() {
		closeTime = t.CloseTime
	}
	_, err := x.ExecContext(ctx, insertTrade,
		t.RunID, t.TradeID, t.Symbol, t.Action, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.StopLoss, t.TakeProfit, t.OpenTime, closeTime, t.RealizedPL, t.Status, t.Reason,
	)
	return err
}

func recordEquity(ctx context.Context, x execer, e EquitySnapshot) error {
	_, err := x.ExecContext(ctx, insertEquity, e.RunID, e.Time, e.Equity, e.Cash, e.PositionsValue)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return recordTrade(context.Background(), j.db, t)
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return recordEquity(context.Background(), j.db, e)
}

// Save writes the run, its trades and its equity curve in one transaction.
func (j *SQLite) Save(ctx context.Context, res *backtest.Result) error {
	run := NewBacktestRun(res)

	symbols, err := json.Marshal(run.Symbols)
	if err != nil {
		return err
	}
	dropped, err := json.Marshal(nonNil(run.Dropped))
	if err != nil {
		return err
	}
	monthly, err := json.Marshal(run.MonthlyReturns)
	if err != nil {
		return err
	}
	history, err := json.Marshal(res.Trades)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, strategy_id, symbols, dropped, interval, start_date, end_date, ticks,
		 initial_capital, final_capital, total_return, total_pnl, total_trades, winning_trades,
		 losing_trades, win_rate, profit_factor, sharpe_ratio, max_drawdown, avg_trade_duration,
		 monthly_returns, trade_history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.StrategyID, string(symbols), string(dropped), run.Interval,
		run.Start, run.End, run.Ticks,
		run.InitialCapital, run.FinalCapital, run.TotalReturn, run.TotalPnL, run.TotalTrades,
		run.WinningTrades, run.LosingTrades, run.WinRate, profitFactorValue(run.ProfitFactor),
		run.SharpeRatio, run.MaxDrawdown, run.AvgTradeDuration,
		string(monthly), string(history),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for _, t := range run.Trades {
		if err := recordTrade(ctx, tx, t); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
	}
	for _, e := range run.Equity {
		if err := recordEquity(ctx, tx, e); err != nil {
			return fmt.Errorf("insert equity %s: %w", run.RunID, err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
