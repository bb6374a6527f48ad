package monitor

import (
	"sort"
	"time"

	"codeberg.org/mutker/usagemon/internal/window"
)

// MergedPoint combines the totals of several resources for one minute.
type MergedPoint struct {
	Label  string             `json:"label"`
	Minute time.Time          `json:"minute"`
	Values map[string]float64 `json:"values"`
}

// MergeWindows combines the aggregate total of each resource's window per
// minute, oldest first, keeping the last limit points (all when limit <= 0).
// A resource without an entry for a minute is absent from that point.
func MergeWindows(windows map[string][]window.Entry, limit int) []MergedPoint {
	byMinute := make(map[time.Time]*MergedPoint)

	for resource, entries := range windows {
		for _, e := range entries {
			total, ok := e.Total()
			if !ok {
				continue
			}

			key := e.Minute.UTC()
			p, ok := byMinute[key]
			if !ok {
				p = &MergedPoint{Label: e.Label, Minute: e.Minute, Values: make(map[string]float64)}
				byMinute[key] = p
			}
			p.Values[resource] = total
		}
	}

	points := make([]MergedPoint, 0, len(byMinute))
	for _, p := range byMinute {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Minute.Before(points[j].Minute)
	})

	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}

	return points
}
