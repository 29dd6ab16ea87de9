package market

import (
	"fmt"
	"io"
	"sort"
	"time"
)

type GapKind string

const (
	GapMinor      GapKind = "minor"
	GapSuspicious GapKind = "suspicious"
	GapWeekend    GapKind = "weekend"
)

// Gap is a run of missing bars in a series.
type Gap struct {
	Start time.Time // first missing bar
	Len   int       // number of missing intervals
	Kind  GapKind
}

type GapStats struct {
	TotalBars      int
	PresentBars    int
	MissingBars    int
	GapCount       int
	WeekendGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind GapKind
}

// SortBars returns a copy of bars ordered by time with duplicate timestamps
// removed. The first bar seen for a timestamp wins; later duplicates are
// counted and dropped.
func SortBars(bars []Bar) (out []Bar, duplicates int) {
	if len(bars) == 0 {
		return nil, 0
	}

	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out = make([]Bar, 0, len(sorted))
	for i, b := range sorted {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			duplicates++
			continue
		}
		out = append(out, b)
	}
	return out, duplicates
}

// FindGaps walks an ascending, duplicate-free series of bar times and
// reports every run of missing intervals between the first and last bar.
func FindGaps(times []time.Time, interval time.Duration) []Gap {
	if len(times) < 2 || interval <= 0 {
		return nil
	}

	var gaps []Gap
	for i := 1; i < len(times); i++ {
		missing := int(times[i].Sub(times[i-1])/interval) - 1
		if missing <= 0 {
			continue
		}
		start := times[i-1].Add(interval)
		gaps = append(gaps, Gap{
			Start: start,
			Len:   missing,
			Kind:  classifyGap(start, missing, interval),
		})
	}
	return gaps
}

func classifyGap(start time.Time, length int, interval time.Duration) GapKind {
	wd := start.UTC().Weekday()
	gapMinutes := int64(length) * int64(interval/time.Minute)

	// Weekend-ish if gap >= 24h and starts Fri/Sat/Sun (UTC heuristic)
	if gapMinutes >= 60*24 {
		if wd == time.Friday || wd == time.Saturday || wd == time.Sunday {
			return GapWeekend
		}
		return GapSuspicious
	}

	// Anything >= 10 minutes missing is worth flagging, but a single
	// missing bar on an hourly or slower series is routine.
	if gapMinutes >= 10 && (length > 1 || interval < time.Hour) {
		return GapSuspicious
	}

	return GapMinor
}

// Stats summarizes gaps found in a series with present bars.
func Stats(present int, gaps []Gap) GapStats {
	s := GapStats{PresentBars: present}
	for _, g := range gaps {
		s.GapCount++
		s.MissingBars += g.Len
		if g.Len > s.LongestGap {
			s.LongestGap = g.Len
			s.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case GapWeekend:
			s.WeekendGaps++
		case GapSuspicious:
			s.SuspiciousGaps++
		}
	}
	s.TotalBars = s.PresentBars + s.MissingBars
	return s
}

func (s GapStats) Print(w io.Writer, symbol string) {
	fmt.Fprintf(w, "---- %s gaps ----\n", symbol)
	fmt.Fprintf(w, "     Total Bars: %d\n", s.TotalBars)
	fmt.Fprintf(w, "   Present Bars: %d\n", s.PresentBars)
	fmt.Fprintf(w, "   Missing Bars: %d\n", s.MissingBars)
	fmt.Fprintf(w, "     Total Gaps: %d\n", s.GapCount)
	fmt.Fprintf(w, "   Weekend Gaps: %d\n", s.WeekendGaps)
	fmt.Fprintf(w, "Suspicious Gaps: %d\n", s.SuspiciousGaps)
	fmt.Fprintf(w, "    Longest Gap: %d bars (%s)\n", s.LongestGap, s.LongestGapKind)
}
