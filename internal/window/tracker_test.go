package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerFirstObservationSeeds(t *testing.T) {
	for _, field := range []Field{Minute, Hour, Day, ISOWeek} {
		tr := NewTracker(field)
		assert.False(t, tr.Seeded(), field.String())
		assert.False(t, tr.Observe(time.Date(2024, 3, 4, 10, 59, 59, 0, time.UTC)), field.String())
		assert.True(t, tr.Seeded(), field.String())
	}
}

func TestTrackerCrossings(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 59, 30, 0, time.UTC) // Monday

	tests := []struct {
		name  string
		field Field
		next  time.Time
		want  bool
	}{
		{name: "same minute", field: Minute, next: base.Add(20 * time.Second), want: false},
		{name: "next minute", field: Minute, next: base.Add(31 * time.Second), want: true},
		{name: "same minute next hour", field: Minute, next: base.Add(time.Hour), want: true},
		{name: "next hour", field: Hour, next: base.Add(time.Minute), want: true},
		{name: "same hour", field: Hour, next: base.Add(-time.Minute), want: false},
		{name: "same hour next day", field: Hour, next: base.Add(24 * time.Hour), want: true},
		{name: "same day", field: Day, next: base.Add(12 * time.Hour), want: false},
		{name: "next day", field: Day, next: base.Add(14 * time.Hour), want: true},
		{name: "same iso week", field: ISOWeek, next: base.Add(6 * 24 * time.Hour), want: false},
		{name: "next iso week", field: ISOWeek, next: base.Add(7 * 24 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.field)
			tr.Observe(base)
			assert.Equal(t, tt.want, tr.Observe(tt.next))
		})
	}
}

func TestTrackerCollapsesGaps(t *testing.T) {
	tr := NewTracker(Hour)
	start := time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC)

	tr.Observe(start)
	assert.True(t, tr.Observe(start.Add(5*time.Hour)))
	assert.False(t, tr.Observe(start.Add(5*time.Hour+time.Minute)))
}

func TestTrackerISOWeekAcrossYearEnd(t *testing.T) {
	tr := NewTracker(ISOWeek)

	// 2024-12-30 is in ISO week 1 of 2025
	tr.Observe(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	assert.False(t, tr.Observe(time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC)))
	assert.True(t, tr.Observe(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
}
