package monitor

import (
	"testing"
	"time"

	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totals(start time.Time, values ...float64) []window.Entry {
	entries := make([]window.Entry, len(values))
	for i, v := range values {
		minute := start.Add(time.Duration(i) * time.Minute)
		entries[i] = window.Entry{
			Label:  minute.Format(window.LabelLayout),
			Minute: minute,
			Values: map[string]float64{metrics.TotalEntity: v, "db": 1},
		}
	}
	return entries
}

func TestMergeWindows(t *testing.T) {
	start := time.Date(2024, 3, 4, 23, 58, 0, 0, time.UTC)

	points := MergeWindows(map[string][]window.Entry{
		"cpu":    totals(start, 10, 20, 30),
		"memory": totals(start.Add(time.Minute), 50, 60, 70),
	}, 0)

	require.Len(t, points, 4)
	assert.Equal(t, []string{"23:58", "23:59", "00:00", "00:01"},
		[]string{points[0].Label, points[1].Label, points[2].Label, points[3].Label})
	assert.Equal(t, map[string]float64{"cpu": 10}, points[0].Values)
	assert.Equal(t, map[string]float64{"cpu": 20, "memory": 50}, points[1].Values)
	assert.Equal(t, map[string]float64{"memory": 70}, points[3].Values)
}

func TestMergeWindowsLimit(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	points := MergeWindows(map[string][]window.Entry{
		"cpu": totals(start, 1, 2, 3, 4, 5),
	}, 2)

	require.Len(t, points, 2)
	assert.Equal(t, "10:03", points[0].Label)
	assert.Equal(t, "10:04", points[1].Label)
}

func TestMergeWindowsEmpty(t *testing.T) {
	assert.Empty(t, MergeWindows(nil, 10))
}
