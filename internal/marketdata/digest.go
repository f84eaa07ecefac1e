package marketdata

import (
	"fmt"
	"strings"
)

// Digest summarizes the series for a prompt: headline statistics followed by
// the most recent rows.
func (s *Series) Digest(recent int) string {
	last, ok := s.Last()
	if !ok {
		return fmt.Sprintf("No price data for %s.", s.Symbol)
	}
	first := s.Candles[0]

	high, low := last.High, last.Low
	var volSum int64
	for _, c := range s.Candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volSum += c.Volume
	}
	avgVol := volSum / int64(len(s.Candles))

	var change float64
	if first.Close != 0 {
		change = (last.Close - first.Close) / first.Close * 100
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s (%s)\n", s.Symbol, s.Currency)
	fmt.Fprintf(&sb, "Period: %s to %s (%d trading days)\n",
		first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), len(s.Candles))
	fmt.Fprintf(&sb, "Latest close: %.0f\n", last.Close)
	fmt.Fprintf(&sb, "Change over period: %+.2f%%\n", change)
	fmt.Fprintf(&sb, "Period high / low: %.0f / %.0f\n", high, low)
	fmt.Fprintf(&sb, "Average daily volume: %d\n", avgVol)

	if recent > len(s.Candles) {
		recent = len(s.Candles)
	}
	if recent > 0 {
		sb.WriteString("\nDate | Open | High | Low | Close | Volume\n")
		for _, c := range s.Candles[len(s.Candles)-recent:] {
			fmt.Fprintf(&sb, "%s | %.0f | %.0f | %.0f | %.0f | %d\n",
				c.Time.Format("2006-01-02"), c.Open, c.High, c.Low, c.Close, c.Volume)
		}
	}
	return sb.String()
}
