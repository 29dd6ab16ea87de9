package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rustyeddy/backtester/market"
)

const (
	OANDAPracticeURL = "https://api-fxpractice.oanda.com"
	OANDALiveURL     = "https://api-fxtrade.oanda.com"

	// Environment read by NewOANDAFromEnv.
	EnvOANDAToken   = "OANDA_TOKEN"
	EnvOANDABaseURL = "OANDA_BASE_URL"

	// maxCandles is the most the candles endpoint returns per request.
	maxCandles = 5000

	// Well under the documented 100 requests per second.
	oandaRatePerSec = 20
)

// OANDA fetches historical candles from the OANDA v20 REST API. Only
// complete candles are returned. Windows longer than one request allows are
// fetched in chunks, paced by Limiter when set.
type OANDA struct {
	BaseURL string
	Token   string
	Price   string // M, B or A; default M
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func NewOANDA(baseURL, token string) *OANDA {
	return &OANDA{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(oandaRatePerSec, 5),
	}
}

// NewOANDAFromEnv reads OANDA_TOKEN and OANDA_BASE_URL, defaulting to the
// practice server.
func NewOANDAFromEnv() (*OANDA, error) {
	token := strings.TrimSpace(os.Getenv(EnvOANDAToken))
	if token == "" {
		return nil, fmt.Errorf("oanda: %s is not set", EnvOANDAToken)
	}
	base := strings.TrimSpace(os.Getenv(EnvOANDABaseURL))
	if base == "" {
		base = OANDAPracticeURL
	}
	return NewOANDA(base, token), nil
}

type ohlc struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type candlesResp struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool   `json:"complete"`
		Time     string `json:"time"`
		Volume   int    `json:"volume"`
		Mid      *ohlc  `json:"mid,omitempty"`
		Bid      *ohlc  `json:"bid,omitempty"`
		Ask      *ohlc  `json:"ask,omitempty"`
	} `json:"candles"`
}

// Instrument maps "EURUSD" to OANDA's "EUR_USD".
func Instrument(symbol string) string {
	s := market.NormalizeSymbol(symbol)
	if len(s) == 6 {
		return s[:3] + "_" + s[3:]
	}
	return s
}

// Granularity maps an interval such as "D1" to OANDA's "D".
func Granularity(interval string) string {
	switch tf := strings.ToUpper(strings.TrimSpace(interval)); tf {
	case "D1", "1D":
		return "D"
	case "W1", "1W":
		return "W"
	case "MN1":
		return "M"
	default:
		return tf
	}
}

func (o *OANDA) GetHistoricalBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	if o.Token == "" {
		return nil, fmt.Errorf("oanda: missing token")
	}
	if o.BaseURL == "" {
		return nil, fmt.Errorf("oanda: missing base url")
	}
	if start.IsZero() {
		return nil, fmt.Errorf("oanda: start time is required")
	}
	step, err := market.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var bars []market.Bar
	for from := start; from.Before(end); {
		to := from.Add(maxCandles * step)
		if to.After(end) {
			to = end
		}
		chunk, err := o.fetch(ctx, symbol, interval, from, to)
		if err != nil {
			return nil, err
		}
		bars = append(bars, chunk...)
		from = to
	}

	bars, _ = market.SortBars(bars)
	out := bars[:0]
	for _, b := range bars {
		if inRange(b.Time, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (o *OANDA) fetch(ctx context.Context, symbol, interval string, from, to time.Time) ([]market.Bar, error) {
	price := strings.ToUpper(strings.TrimSpace(o.Price))
	if price == "" {
		price = "M"
	}
	if price != "M" && price != "B" && price != "A" {
		return nil, fmt.Errorf("oanda: price %q not supported, use M, B or A", price)
	}

	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = fmt.Sprintf("/v3/instruments/%s/candles", Instrument(symbol))

	q := u.Query()
	q.Set("granularity", Granularity(interval))
	q.Set("price", price)
	q.Set("from", from.UTC().Format(time.RFC3339Nano))
	q.Set("to", to.UTC().Format(time.RFC3339Nano))
	u.RawQuery = q.Encode()

	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.Token)
	req.Header.Set("Content-Type", "application/json")

	httpClient := o.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("oanda candles http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr candlesResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("oanda candles: %w", err)
	}

	sym := market.NormalizeSymbol(symbol)
	bars := make([]market.Bar, 0, len(cr.Candles))
	for _, cd := range cr.Candles {
		if !cd.Complete {
			continue
		}
		var p *ohlc
		switch price {
		case "M":
			p = cd.Mid
		case "B":
			p = cd.Bid
		case "A":
			p = cd.Ask
		}
		if p == nil {
			continue
		}
		b, err := candleBar(sym, cd.Time, float64(cd.Volume), p)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func candleBar(symbol, ts string, volume float64, p *ohlc) (market.Bar, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return market.Bar{}, fmt.Errorf("oanda candle time %q: %w", ts, err)
	}
	var v [4]float64
	for i, s := range []string{p.O, p.H, p.L, p.C} {
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return market.Bar{}, fmt.Errorf("oanda candle %s: bad price %q", ts, s)
		}
	}
	b := market.Bar{
		Symbol: symbol,
		Time:   t.UTC(),
		Open:   v[0],
		High:   v[1],
		Low:    v[2],
		Close:  v[3],
		Volume: volume,
	}
	if err := b.Validate(); err != nil {
		return market.Bar{}, fmt.Errorf("oanda candle: %w", err)
	}
	return b, nil
}
