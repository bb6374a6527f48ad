package rollup

import (
	"time"

	"codeberg.org/mutker/usagemon/internal/metrics"
)

// periodStart returns the start of the calendar period of scope containing
// t, in t's location. Weeks start on Monday.
func periodStart(scope metrics.Scope, t time.Time) time.Time {
	y, m, d := t.Date()

	switch scope {
	case metrics.ScopeHourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	case metrics.ScopeDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	default:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	}
}

// periodEnd returns the start of the period following start.
func periodEnd(scope metrics.Scope, start time.Time) time.Time {
	switch scope {
	case metrics.ScopeHourly:
		return start.Add(time.Hour)
	case metrics.ScopeDaily:
		return start.AddDate(0, 0, 1)
	default:
		return start.AddDate(0, 0, 7)
	}
}
