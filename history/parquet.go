package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/backtester/market"
)

// BarRecord is the Parquet schema for bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ParquetDir reads bars from <Dir>/<SYMBOL>/<interval>.parquet.
type ParquetDir struct {
	Dir string
}

func NewParquetDir(dir string) *ParquetDir {
	return &ParquetDir{Dir: dir}
}

func (p *ParquetDir) Path(symbol, interval string) string {
	return filepath.Join(p.Dir, market.NormalizeSymbol(symbol), interval+".parquet")
}

func (p *ParquetDir) GetHistoricalBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := p.Path(symbol, interval)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var bars []market.Bar
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		if !inRange(ts, start, end) {
			continue
		}
		b := market.Bar{
			Symbol: market.NormalizeSymbol(symbol),
			Time:   ts,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// WriteBars merges bars into the file for symbol at interval. Incoming bars
// replace stored ones with the same timestamp.
func (p *ParquetDir) WriteBars(symbol, interval string, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	symbol = market.NormalizeSymbol(symbol)
	path := p.Path(symbol, interval)

	incoming := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		incoming = append(incoming, BarRecord{
			Symbol:    symbol,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	existing, _ := parquet.ReadFile[BarRecord](path)
	merged := mergeBarRecords(existing, incoming)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("writing bars for %s/%s: %w", symbol, interval, err)
	}
	return nil
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
