package market

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInterval is the bar interval used when none is requested.
const DefaultInterval = "H1"

// intervals lists the supported bar intervals. The first spelling is the
// canonical one; "1H" style aliases are accepted on input.
var intervals = []struct {
	name  string
	alias string
	d     time.Duration
}{
	{"M1", "1M", time.Minute},
	{"M5", "5M", 5 * time.Minute},
	{"M15", "15M", 15 * time.Minute},
	{"M30", "30M", 30 * time.Minute},
	{"H1", "1H", time.Hour},
	{"H4", "4H", 4 * time.Hour},
	{"D1", "1D", 24 * time.Hour},
	{"W1", "1W", 7 * 24 * time.Hour},
	{"MN1", "", 30 * 24 * time.Hour}, // nominal month
}

// IntervalDuration converts an interval string such as "H1" to a duration.
func IntervalDuration(tf string) (time.Duration, error) {
	tf = strings.ToUpper(strings.TrimSpace(tf))
	for _, iv := range intervals {
		if tf == iv.name || (iv.alias != "" && tf == iv.alias) {
			return iv.d, nil
		}
	}
	return 0, fmt.Errorf("unsupported interval %q", tf)
}

// IntervalName is the inverse of IntervalDuration for supported intervals.
func IntervalName(d time.Duration) (string, error) {
	for _, iv := range intervals {
		if d == iv.d {
			return iv.name, nil
		}
	}
	return "", fmt.Errorf("no interval name for %s", d)
}
