// market/instruments.go
package market

import (
	"math"
	"strings"
)

type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	PipLocation   int
}

var Instruments = map[string]InstrumentMeta{
	"EURUSD": {
		Name:          "EURUSD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		PipLocation:   -4,
	},
	"GBPUSD": {
		Name:          "GBPUSD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		PipLocation:   -4,
	},
	"USDJPY": {
		Name:          "USDJPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		PipLocation:   -2,
	},
	"XAUUSD": {
		Name:          "XAUUSD",
		BaseCurrency:  "XAU",
		QuoteCurrency: "USD",
		PipLocation:   -2,
	},
}

// DefaultSymbols are replayed when a request names none.
var DefaultSymbols = []string{"EURUSD", "GBPUSD", "XAUUSD"}

// NormalizeSymbol maps broker spellings like "EUR_USD" or "eur/usd" to "EURUSD".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "/", "", "-", "").Replace(s)
}

// PipSize returns the pip size for symbol, e.g. 0.0001 for EURUSD.
// Unknown symbols fall back to 0.0001.
func PipSize(symbol string) float64 {
	meta, ok := Instruments[NormalizeSymbol(symbol)]
	if !ok {
		return 0.0001
	}
	return math.Pow10(meta.PipLocation)
}
