package window

import "time"

// Field is the calendar field a Tracker watches.
type Field uint8

const (
	Minute Field = iota
	Hour
	Day
	ISOWeek
)

func (f Field) String() string {
	switch f {
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case ISOWeek:
		return "iso_week"
	default:
		return "unknown"
	}
}

// stamp identifies the calendar period containing an instant. Fields below
// the tracked granularity stay zero.
type stamp struct {
	year, period, hour, minute int
}

func (f Field) stamp(t time.Time) stamp {
	switch f {
	case Minute:
		return stamp{year: t.Year(), period: t.YearDay(), hour: t.Hour(), minute: t.Minute()}
	case Hour:
		return stamp{year: t.Year(), period: t.YearDay(), hour: t.Hour()}
	case Day:
		return stamp{year: t.Year(), period: t.YearDay()}
	default:
		year, week := t.ISOWeek()
		return stamp{year: year, period: week}
	}
}

type trackerState uint8

const (
	uninitialized trackerState = iota
	seeded
)

// Tracker detects when successive instants fall into different calendar
// periods. The first observation only seeds it. Any number of skipped
// periods between two observations count as a single crossing.
type Tracker struct {
	field Field
	state trackerState
	last  stamp
}

func NewTracker(field Field) *Tracker {
	return &Tracker{field: field}
}

// Observe records now and reports whether a boundary was crossed since the
// previous observation.
func (t *Tracker) Observe(now time.Time) bool {
	current := t.field.stamp(now)

	if t.state == uninitialized {
		t.state = seeded
		t.last = current
		return false
	}

	if current == t.last {
		return false
	}

	t.last = current

	return true
}

// Seeded reports whether the tracker has observed at least one instant.
func (t *Tracker) Seeded() bool {
	return t.state == seeded
}

func (t *Tracker) Field() Field {
	return t.field
}
