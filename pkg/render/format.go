// Duration formatting shared by the text, table and SVG renderers
package render

import "time"

// FormatDuration renders a span duration given in microseconds, rounded to
// about three significant digits: "1.5s", "12.3ms", "850µs".
func FormatDuration(us int64) string {
	if us <= 0 {
		return "0µs"
	}
	return roundDuration(time.Duration(us) * time.Microsecond).String()
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= 100*time.Second:
		return d.Round(time.Second)
	case d >= 10*time.Second:
		return d.Round(100 * time.Millisecond)
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= 100*time.Millisecond:
		return d.Round(time.Millisecond)
	case d >= 10*time.Millisecond:
		return d.Round(100 * time.Microsecond)
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}
