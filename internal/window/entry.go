// Package window turns per-tick readings into minute aggregates and keeps
// the most recent ones in a bounded rolling window.
package window

import (
	"time"

	"codeberg.org/mutker/usagemon/internal/metrics"
)

// LabelLayout formats entry labels as HH:MM.
const LabelLayout = "15:04"

// MinuteAggregate is the mean of one entity's readings over a closed minute.
type MinuteAggregate struct {
	Entity  string    `json:"entity"`
	Average float64   `json:"average"`
	Minute  time.Time `json:"minute"`
}

// Entry is one closed minute. The aggregate total of the resource is stored
// in Values under metrics.TotalEntity.
type Entry struct {
	Label  string             `json:"label"`
	Minute time.Time          `json:"minute"`
	Values map[string]float64 `json:"values"`
}

// Total returns the aggregate value of the entry.
func (e Entry) Total() (float64, bool) {
	v, ok := e.Values[metrics.TotalEntity]
	return v, ok
}

func (e Entry) clone() Entry {
	values := make(map[string]float64, len(e.Values))
	for k, v := range e.Values {
		values[k] = v
	}
	e.Values = values

	return e
}
