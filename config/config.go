// Package config loads the backtester configuration from YAML or JSON with
// .env and environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

// Environment overrides, applied after the file is parsed.
const (
	EnvLogLevel  = "TRADER_LOG_LEVEL"
	EnvLogFormat = "TRADER_LOG_FORMAT"
	EnvDataDir   = "TRADER_DATA_DIR"
	EnvDBPath    = "TRADER_DB_PATH"
)

type Config struct {
	Log        LogConfig                `json:"log" yaml:"log"`
	Data       DataConfig               `json:"data" yaml:"data"`
	Backtest   BacktestConfig           `json:"backtest" yaml:"backtest"`
	Journal    JournalConfig            `json:"journal" yaml:"journal"`
	Strategies []strategies.Definition `json:"strategies,omitempty" yaml:"strategies,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug|info|warn|error
	Format string `json:"format" yaml:"format"` // text|json
}

type DataConfig struct {
	Source   string `json:"source" yaml:"source"` // csv|parquet|memory|oanda
	Dir      string `json:"dir" yaml:"dir"`
	Interval string `json:"interval" yaml:"interval"`
}

type BacktestConfig struct {
	InitialCapital float64  `json:"initial_capital" yaml:"initial_capital"`
	Symbols        []string `json:"symbols" yaml:"symbols"`
	SpreadHalf     float64  `json:"spread_half" yaml:"spread_half"`
	CloseAtEnd     bool     `json:"close_at_end" yaml:"close_at_end"`
	ProgressEvery  int      `json:"progress_every" yaml:"progress_every"`
	Workers        int      `json:"workers" yaml:"workers"`
}

type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // sqlite|csv|none
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	OrgDir string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Data: DataConfig{
			Source:   "csv",
			Dir:      "./data",
			Interval: market.DefaultInterval,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			Symbols:        append([]string(nil), market.DefaultSymbols...),
			SpreadHalf:     market.DefaultSpreadHalf,
			ProgressEvery:  100,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtests.db",
		},
	}
}

// Load reads .env (if present), then path (if not empty) on top of the
// defaults, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads path over the defaults without consulting the
// environment.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Journal.DBPath = v
	}
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}

	switch c.Data.Source {
	case "csv", "parquet":
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for %s source", c.Data.Source)
		}
	case "memory", "oanda":
	default:
		return fmt.Errorf("data.source must be 'csv', 'parquet', 'memory' or 'oanda'")
	}
	if _, err := market.IntervalDuration(c.Data.Interval); err != nil {
		return fmt.Errorf("data.interval: %w", err)
	}

	b := c.Backtest
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	for _, s := range b.Symbols {
		if market.NormalizeSymbol(s) == "" {
			return fmt.Errorf("backtest.symbols has an empty entry")
		}
	}
	if b.SpreadHalf < 0 {
		return fmt.Errorf("backtest.spread_half must not be negative")
	}
	if b.Workers < 0 {
		return fmt.Errorf("backtest.workers must not be negative")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for i, d := range c.Strategies {
		if d.ID == "" {
			return fmt.Errorf("strategies[%d].id is required", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("strategies[%d]: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// Register defines every configured strategy in reg.
func (c *Config) Register(reg *strategies.Registry) error {
	for _, d := range c.Strategies {
		if err := reg.Define(d); err != nil {
			return err
		}
	}
	return nil
}
