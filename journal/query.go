package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/backtester/risk"
)

const runColumns = `
	run_id, created, strategy_id, symbols, dropped, interval, start_date, end_date, ticks,
	initial_capital, final_capital, total_return, total_pnl, total_trades, winning_trades,
	losing_trades, win_rate, profit_factor, sharpe_ratio, max_drawdown, avg_trade_duration,
	monthly_returns`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (BacktestRun, error) {
	var (
		r                         BacktestRun
		symbols, dropped, monthly string
		pf                        sql.NullFloat64
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.StrategyID, &symbols, &dropped, &r.Interval,
		&r.Start, &r.End, &r.Ticks,
		&r.InitialCapital, &r.FinalCapital, &r.TotalReturn, &r.TotalPnL, &r.TotalTrades,
		&r.WinningTrades, &r.LosingTrades, &r.WinRate, &pf, &r.SharpeRatio, &r.MaxDrawdown,
		&r.AvgTradeDuration, &monthly,
	)
	if err != nil {
		return BacktestRun{}, err
	}

	switch {
	case pf.Valid:
		r.ProfitFactor = pf.Float64
	case r.WinningTrades > 0 && r.LosingTrades == 0:
		r.ProfitFactor = math.Inf(1)
	}
	if err := json.Unmarshal([]byte(symbols), &r.Symbols); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s symbols: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(dropped), &r.Dropped); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s dropped: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(monthly), &r.MonthlyReturns); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s monthly returns: %w", r.RunID, err)
	}
	return r, nil
}

// ListRuns returns runs newest first, limited to strategyID when it is set.
func (j *SQLite) ListRuns(ctx context.Context, strategyID string) ([]BacktestRun, error) {
	q := `SELECT ` + runColumns + ` FROM backtest_runs`
	var args []any
	if strategyID != "" {
		q += ` WHERE strategy_id = ?`
		args = append(args, strategyID)
	}
	q += ` ORDER BY created DESC, run_id DESC`

	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns one run with its trades and equity curve.
func (j *SQLite) GetRun(ctx context.Context, runID string) (BacktestRun, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return BacktestRun{}, err
	}

	if r.Trades, err = j.listTrades(ctx, runID); err != nil {
		return BacktestRun{}, err
	}
	if r.Equity, err = j.listEquity(ctx, runID); err != nil {
		return BacktestRun{}, err
	}
	pol := risk.DefaultPolicy()
	r.RiskPct, r.RR = pol.RiskPct, pol.RewardRisk
	r.StopPips = meanStopPips(r.Trades)
	return r, nil
}

// Compare returns the latest run of each strategy, in the order given.
// Strategies with no runs are skipped.
func (j *SQLite) Compare(ctx context.Context, strategyIDs []string) ([]BacktestRun, error) {
	if len(strategyIDs) == 0 {
		return nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(strategyIDs)), ",")
	args := make([]any, len(strategyIDs))
	for i, id := range strategyIDs {
		args[i] = id
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM backtest_runs
		WHERE strategy_id IN (`+marks+`)
		ORDER BY created DESC, run_id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]BacktestRun)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if _, ok := latest[r.StrategyID]; !ok {
			latest[r.StrategyID] = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []BacktestRun
	for _, id := range strategyIDs {
		if r, ok := latest[id]; ok {
			out = append(out, r)
			delete(latest, id)
		}
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	row := j.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return rec, err
}

const tradeColumns = `
	run_id, trade_id, symbol, action, quantity, entry_price, exit_price, stop_loss, take_profit,
	open_time, close_time, realized_pl, status, reason`

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec       TradeRecord
		closeTime sql.NullTime
	)
	err := s.Scan(
		&rec.RunID, &rec.TradeID, &rec.Symbol, &rec.Action, &rec.Quantity,
		&rec.EntryPrice, &rec.ExitPrice, &rec.StopLoss, &rec.TakeProfit,
		&rec.OpenTime, &closeTime, &rec.RealizedPL, &rec.Status, &rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	if closeTime.Valid {
		rec.CloseTime = closeTime.Time
	}
	return rec, nil
}

func (j *SQLite) listTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades
		WHERE run_id = ? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) listEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity, cash, positions_value
		FROM equity
		WHERE run_id = ?
		ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity, &e.Cash, &e.PositionsValue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
