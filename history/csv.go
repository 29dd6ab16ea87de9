package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// HistData style M1 exports are stamped in EST without daylight saving.
var estNoDST = time.FixedZone("EST", -5*60*60)

const histDataLayout = "20060102 150405"

// CSVDir reads bars from <Dir>/<SYMBOL>_<interval>.csv with rows
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339 or "20060102 150405" (EST, no DST). Both ',' and ';'
// separated files are accepted and a single header row is skipped.
type CSVDir struct {
	Dir string
}

func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{Dir: dir}
}

// Path returns the file holding symbol at interval.
func (c *CSVDir) Path(symbol, interval string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", market.NormalizeSymbol(symbol), interval))
}

func (c *CSVDir) GetHistoricalBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := c.Path(symbol, interval)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f, market.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := bars[:0]
	for _, b := range bars {
		if inRange(b.Time, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ReadCSV parses every bar row from r.
func ReadCSV(r io.Reader, symbol string) ([]market.Bar, error) {
	br := bufio.NewReader(r)
	comma := ','
	if first, err := br.Peek(512); len(first) > 0 {
		line, _, _ := bytes.Cut(first, []byte("\n"))
		if bytes.Contains(line, []byte(";")) && !bytes.Contains(line, []byte(",")) {
			comma = ';'
		}
	} else if err != nil && err != io.EOF {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var (
		bars     []market.Bar
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		b.Symbol = symbol
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarRow(row []string) (market.Bar, bool, error) {
	// Need at least: time,open,high,low,close
	if len(row) < 5 {
		return market.Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Bar{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return market.Bar{}, false, err
	}

	var vals [5]float64
	n := 4
	if len(row) >= 6 {
		n = 5
	}
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
		vals[i] = v
	}

	b := market.Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	if err := b.Validate(); err != nil {
		return market.Bar{}, false, err
	}
	return b, true, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(histDataLayout, s, estNoDST); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// WriteCSV writes bars in the canonical comma separated layout.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
