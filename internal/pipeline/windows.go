package pipeline

import (
	"time"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// futureLag is how far before now a window that would start in the future
// is moved to.
const futureLag = 2 * time.Hour

// Window is a half-open search interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// PlanWindows lays out n consecutive windows of width, the first starting at
// start. A window that would start after now starts at now-2h instead, and
// no window ends after now.
func PlanWindows(start time.Time, width time.Duration, n int, now time.Time) ([]Window, error) {
	if width <= 0 {
		return nil, domain.Configf("window width must be positive, got %s", width)
	}
	if n < 1 {
		return nil, domain.Configf("need at least one window, got %d", n)
	}
	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		w := Window{Start: start.Add(time.Duration(i) * width)}
		if w.Start.After(now) {
			w.Start = now.Add(-futureLag)
		}
		w.End = w.Start.Add(width)
		if w.End.After(now) {
			w.End = now
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// ParseUnit returns the duration of one unit. allowed restricts the units
// accepted; empty allows seconds, minutes and hours.
func ParseUnit(unit string, allowed ...string) (time.Duration, error) {
	if len(allowed) > 0 {
		ok := false
		for _, a := range allowed {
			if a == unit {
				ok = true
				break
			}
		}
		if !ok {
			return 0, domain.Configf("time unit must be one of %v, got %q", allowed, unit)
		}
	}
	switch unit {
	case "seconds":
		return time.Second, nil
	case "minutes":
		return time.Minute, nil
	case "hours":
		return time.Hour, nil
	}
	return 0, domain.Configf("time unit must be seconds, minutes or hours, got %q", unit)
}

// Span is n units of unit.
func Span(n int, unit string, allowed ...string) (time.Duration, error) {
	d, err := ParseUnit(unit, allowed...)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, domain.Configf("negative count of %s: %d", unit, n)
	}
	return time.Duration(n) * d, nil
}
