package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/history"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/strategies"
)

func newRegistry() (*strategies.Registry, error) {
	reg := strategies.NewRegistry(logger)
	if err := cfg.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// newSink builds the configured result sinks. The returned closer must be
// closed when the command is done.
func newSink() (backtest.Sink, io.Closer, error) {
	var (
		sinks  journal.Multi
		closer io.Closer = nopCloser{}
	)
	switch cfg.Journal.Type {
	case "sqlite":
		db, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		sinks = append(sinks, db)
		closer = db
	case "csv":
		sinks = append(sinks, journal.CSV{Dir: cfg.Journal.Dir})
	}
	if cfg.Journal.OrgDir != "" {
		sinks = append(sinks, journal.Org{Dir: cfg.Journal.OrgDir})
	}
	if len(sinks) == 0 {
		return nil, closer, nil
	}
	return sinks, closer, nil
}

func newEngine(sink backtest.Sink) (*backtest.Engine, error) {
	provider, err := history.New(cfg.Data.Source, cfg.Data.Dir)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	eng := backtest.NewEngine(provider, reg, sink, logger)
	b := cfg.Backtest
	eng.Options.Interval = cfg.Data.Interval
	eng.Options.SpreadHalf = b.SpreadHalf
	eng.Options.CloseAtEnd = b.CloseAtEnd
	if b.ProgressEvery != 0 {
		eng.Options.ProgressEvery = b.ProgressEvery
	}
	return eng, nil
}

func openSQLite() (*journal.SQLite, error) {
	if cfg.Journal.DBPath == "" {
		return nil, fmt.Errorf("journal.db_path is not set")
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseDate accepts 2006-01-02 or RFC3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t.UTC(), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
