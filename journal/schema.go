package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy_id TEXT NOT NULL,
	symbols TEXT NOT NULL,
	dropped TEXT NOT NULL,
	interval TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	ticks INTEGER NOT NULL,
	initial_capital REAL NOT NULL,
	final_capital REAL NOT NULL,
	total_return REAL NOT NULL,
	total_pnl REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	avg_trade_duration REAL NOT NULL,
	monthly_returns TEXT NOT NULL,
	trade_history TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_strategy ON backtest_runs(strategy_id, created);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME,
	realized_pl REAL NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	cash REAL NOT NULL,
	positions_value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
