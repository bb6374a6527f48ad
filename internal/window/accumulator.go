package window

import (
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/sampler"
	"codeberg.org/mutker/usagemon/internal/stats"
)

// Accumulator buffers readings per entity until the wall-clock minute
// changes, then emits the per-entity means of the closed minute.
type Accumulator struct {
	resource string
	capacity int
	tracker  *Tracker
	buffers  map[string]*ring[float64]
	order    []string
}

// NewAccumulator creates an accumulator whose per-entity buffers hold up to
// capacity readings, normally the number of ticks in a minute.
func NewAccumulator(resource string, capacity int) *Accumulator {
	return &Accumulator{
		resource: resource,
		capacity: capacity,
		tracker:  NewTracker(Minute),
		buffers:  make(map[string]*ring[float64]),
	}
}

// Add buffers readings captured at now. When now falls into a different
// minute than the previous call, the buffered readings are averaged and
// returned as a closed entry, then the buffers are cleared. Readings of the
// current call are part of the closed minute.
func (a *Accumulator) Add(now time.Time, readings []sampler.Reading) (Entry, []MinuteAggregate, bool) {
	for _, r := range readings {
		if r.Entity == "" || !stats.Valid(r.Value) {
			a.reject(r)
			continue
		}

		buf, ok := a.buffers[r.Entity]
		if !ok {
			buf = newRing[float64](a.capacity)
			a.buffers[r.Entity] = buf
			a.order = append(a.order, r.Entity)
		}
		buf.push(r.Value)
	}

	if !a.tracker.Observe(now) {
		return Entry{}, nil, false
	}

	entry, aggregates := a.close(now)

	return entry, aggregates, true
}

func (a *Accumulator) close(now time.Time) (Entry, []MinuteAggregate) {
	minute := now.Truncate(time.Minute)
	entry := Entry{
		Label:  now.Format(LabelLayout),
		Minute: minute,
		Values: make(map[string]float64, len(a.order)),
	}
	aggregates := make([]MinuteAggregate, 0, len(a.order))

	for _, entity := range a.order {
		buf := a.buffers[entity]
		if buf.len() == 0 {
			continue
		}

		avg := stats.Round(stats.Mean(buf.items()))
		entry.Values[entity] = avg
		aggregates = append(aggregates, MinuteAggregate{Entity: entity, Average: avg, Minute: minute})
	}

	a.buffers = make(map[string]*ring[float64], len(a.order))
	a.order = a.order[:0]

	return entry, aggregates
}

func (a *Accumulator) reject(r sampler.Reading) {
	err := errors.New().WithData(errors.ErrAggregationInput, r)
	logger.Warn().
		Str("resource", a.resource).
		Str("code", string(errors.ErrAggregationInput)).
		Err(err).
		Msg("Rejected reading")
}

// Pending returns the number of buffered readings for entity.
func (a *Accumulator) Pending(entity string) int {
	if buf, ok := a.buffers[entity]; ok {
		return buf.len()
	}

	return 0
}
