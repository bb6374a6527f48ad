// Package rollup condenses the rolling window into hourly, daily and weekly
// records when the wall clock crosses the matching boundary.
package rollup

import (
	"context"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/stats"
	"codeberg.org/mutker/usagemon/internal/window"
)

const (
	// HoursPerDay is the exact number of hourly records a daily rollup needs.
	HoursPerDay = 24
	// DaysPerWeek is the exact number of daily records a weekly rollup needs.
	DaysPerWeek = 7
)

// Scheduler runs the rollup cascade for one resource. It is driven by a
// single goroutine and is not safe for concurrent use.
type Scheduler struct {
	resource   string
	store      metrics.Store
	comparator *Comparator
	onEvent    func(Event)

	hour *window.Tracker
	day  *window.Tracker
	week *window.Tracker
	last time.Time
}

func NewScheduler(resource string, store metrics.Store, comparator *Comparator) *Scheduler {
	return &Scheduler{
		resource:   resource,
		store:      store,
		comparator: comparator,
		hour:       window.NewTracker(window.Hour),
		day:        window.NewTracker(window.Day),
		week:       window.NewTracker(window.ISOWeek),
	}
}

// OnEvent registers a hook receiving every comparison outcome.
func (s *Scheduler) OnEvent(fn func(Event)) {
	s.onEvent = fn
}

// Observe advances the boundary trackers to now and runs the hourly, daily
// and weekly passes whose boundary was crossed, in that order. entries is
// the rolling window as of now. Trackers advance even when writes fail.
func (s *Scheduler) Observe(ctx context.Context, now time.Time, entries []window.Entry) {
	hourly := s.hour.Observe(now)
	daily := s.day.Observe(now)
	weekly := s.week.Observe(now)

	closed := s.last
	s.last = now

	if hourly {
		s.rollupHour(ctx, closed, entries)
	}
	if daily {
		s.rollupFrom(ctx, closed, metrics.ScopeHourly, metrics.ScopeDaily, HoursPerDay)
	}
	if weekly {
		s.rollupFrom(ctx, closed, metrics.ScopeDaily, metrics.ScopeWeekly, DaysPerWeek)
	}
}

// rollupHour persists the mean of each entity's values over the closed hour.
// An entry is stamped with the minute that closed it, so the hour starting
// at 10:00 owns the entries stamped 10:01 through 11:00. Older entries left
// in the window by a sampling gap are skipped.
func (s *Scheduler) rollupHour(ctx context.Context, closed time.Time, entries []window.Entry) {
	var order []string
	values := make(map[string][]float64)

	stamp := periodStart(metrics.ScopeHourly, closed)
	end := periodEnd(metrics.ScopeHourly, stamp)

	for _, e := range entries {
		if !e.Minute.After(stamp) || e.Minute.After(end) {
			continue
		}
		for entity, v := range e.Values {
			if _, ok := values[entity]; !ok {
				order = append(order, entity)
			}
			values[entity] = append(values[entity], v)
		}
	}

	for _, entity := range order {
		s.persist(ctx, metrics.Record{
			Resource:  s.resource,
			Scope:     metrics.ScopeHourly,
			Entity:    entity,
			Value:     stats.Round(stats.Mean(values[entity])),
			Timestamp: stamp,
		})
	}
}

// rollupFrom persists, per entity, the mean of the source-scope records
// stamped inside the closed target period, only when exactly required of
// them exist.
func (s *Scheduler) rollupFrom(ctx context.Context, closed time.Time, source, target metrics.Scope, required int) {
	entities, err := s.store.Entities(ctx, s.resource, source)
	if err != nil {
		logger.Error().
			Str("code", string(errors.CodeOf(err))).
			Str("resource", s.resource).
			Str("scope", target.String()).
			Err(err).
			Msg("Failed to list entities for rollup")
		return
	}

	start := periodStart(target, closed)
	end := periodEnd(target, start)

	for _, entity := range entities {
		key := metrics.Key{Resource: s.resource, Scope: source, Entity: entity}

		recent, err := s.store.QueryRecent(ctx, key, required+1)
		if err != nil {
			logger.Error().
				Str("code", string(errors.CodeOf(err))).
				Str("resource", s.resource).
				Str("scope", target.String()).
				Str("entity", entity).
				Err(err).
				Msg("Failed to read records for rollup")
			continue
		}

		var values []float64
		for _, rec := range recent {
			if !rec.Timestamp.Before(start) && rec.Timestamp.Before(end) {
				values = append(values, rec.Value)
			}
		}

		if len(values) != required {
			logger.Debug().
				Str("resource", s.resource).
				Str("scope", target.String()).
				Str("entity", entity).
				Int("records", len(values)).
				Int("required", required).
				Msg("Skipping rollup")
			continue
		}

		s.persist(ctx, metrics.Record{
			Resource:  s.resource,
			Scope:     target,
			Entity:    entity,
			Value:     stats.Round(stats.Mean(values)),
			Timestamp: start,
		})
	}
}

func (s *Scheduler) persist(ctx context.Context, rec metrics.Record) {
	if s.comparator != nil {
		ev := s.comparator.Compare(ctx, rec)
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	}

	if err := s.store.Append(ctx, rec); err != nil {
		logger.Error().
			Str("code", string(errors.ErrStoreWrite)).
			Str("resource", rec.Resource).
			Str("scope", rec.Scope.String()).
			Str("entity", rec.Entity).
			Err(err).
			Msg("Failed to persist rollup")
	}
}
