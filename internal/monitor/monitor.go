// Package monitor wires sampling, selection, minute aggregation and rollups
// for each monitored resource and exposes the results to readers.
package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/rollup"
	"codeberg.org/mutker/usagemon/internal/sampler"
	"codeberg.org/mutker/usagemon/internal/selector"
	"codeberg.org/mutker/usagemon/internal/window"
)

// Config assembles a Monitor.
type Config struct {
	Sampler sampler.Sampler
	// QuerySampler serves real-time snapshots. Samplers that measure
	// against their previous call need a separate instance here so reads
	// never shift the collector's baseline. Defaults to Sampler.
	QuerySampler sampler.Sampler
	Selector     *selector.Selector
	Store        metrics.Store
	Comparator   *rollup.Comparator
	// Interval is the tick period; it sizes the per-minute buffers.
	Interval   time.Duration
	CacheTTL   time.Duration
	WindowSize int
	Clock      Clock
}

// Monitor aggregates one resource. Tick is called from a single goroutine;
// every other method is safe for concurrent use.
type Monitor struct {
	resource  string
	sampler   sampler.Sampler
	query     sampler.Sampler
	selector  *selector.Selector
	store     metrics.Store
	clock     Clock
	scheduler *rollup.Scheduler
	cache     *Cache[Snapshot]

	mu     sync.RWMutex
	acc    *window.Accumulator
	window *window.Rolling
}

func New(cfg Config) (*Monitor, error) {
	errFactory := errors.New()

	switch {
	case cfg.Sampler == nil:
		return nil, errFactory.WithMessage(ErrInvalidMonitor, "monitor requires a sampler")
	case cfg.Selector == nil:
		return nil, errFactory.WithMessage(ErrInvalidMonitor, "monitor requires a selector")
	case cfg.Store == nil:
		return nil, errFactory.WithMessage(ErrInvalidMonitor, "monitor requires a store")
	}

	if cfg.QuerySampler == nil {
		cfg.QuerySampler = cfg.Sampler
	}
	if cfg.QuerySampler.Resource() != cfg.Sampler.Resource() {
		return nil, errFactory.WithMessage(ErrInvalidMonitor, "query sampler reads a different resource")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = window.DefaultCapacity
	}

	resource := cfg.Sampler.Resource()
	m := &Monitor{
		resource:  resource,
		sampler:   cfg.Sampler,
		query:     cfg.QuerySampler,
		selector:  cfg.Selector,
		store:     cfg.Store,
		clock:     cfg.Clock,
		scheduler: rollup.NewScheduler(resource, cfg.Store, cfg.Comparator),
		acc:       window.NewAccumulator(resource, ticksPerMinute(cfg.Interval)),
		window:    window.NewRolling(cfg.WindowSize),
	}
	m.cache = NewCache(cfg.CacheTTL, cfg.Clock, m.snapshot)

	return m, nil
}

// ticksPerMinute sizes the per-entity buffers with one slot of slack for
// ticks that land late in the minute.
func ticksPerMinute(interval time.Duration) int {
	if interval <= 0 {
		interval = time.Second
	}

	return int(time.Minute/interval) + 1
}

func (m *Monitor) Resource() string {
	return m.resource
}

// Scheduler exposes the rollup scheduler so callers can register event
// hooks before collection starts.
func (m *Monitor) Scheduler() *rollup.Scheduler {
	return m.scheduler
}

// Tick samples the resource once, folds the readings into the current
// minute and runs any rollups whose boundary was crossed.
func (m *Monitor) Tick(ctx context.Context) error {
	now := m.clock()

	total, readings, err := m.read(ctx, m.sampler)
	if err != nil {
		return err
	}
	readings = append(readings, sampler.Reading{Entity: metrics.TotalEntity, Value: total})

	m.mu.Lock()
	entry, _, closed := m.acc.Add(now, readings)
	var entries []window.Entry
	if closed {
		m.window.Push(entry)
		entries = m.window.Entries()
	}
	m.mu.Unlock()

	// an hour boundary always closes a minute, so the scheduler only
	// needs the window when one closed
	m.scheduler.Observe(ctx, now, entries)

	return nil
}

// read samples the total and the selected breakdown. It never holds the
// window lock.
func (m *Monitor) read(ctx context.Context, s sampler.Sampler) (float64, []sampler.Reading, error) {
	errFactory := errors.New()

	total, err := s.SampleTotal(ctx)
	if err != nil {
		return 0, nil, errFactory.Wrap(ErrSampling, err)
	}

	raw, err := s.SampleEntities(ctx)
	if err != nil {
		return 0, nil, errFactory.Wrap(ErrSampling, err)
	}

	return total, m.selector.Select(raw), nil
}

// Window returns a copy of the rolling window, oldest first.
func (m *Monitor) Window() []window.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.window.Entries()
}

// Snapshot returns the cached real-time view, recomputing it when stale.
func (m *Monitor) Snapshot(ctx context.Context) (Snapshot, error) {
	return m.cache.Get(ctx)
}

func (m *Monitor) snapshot(ctx context.Context) (Snapshot, error) {
	total, entities, err := m.read(ctx, m.query)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Resource:   m.resource,
		Total:      total,
		Entities:   entities,
		LastHourly: latestTotal(ctx, m.store, m.resource, metrics.ScopeHourly),
		LastDaily:  latestTotal(ctx, m.store, m.resource, metrics.ScopeDaily),
		LastWeekly: latestTotal(ctx, m.store, m.resource, metrics.ScopeWeekly),
		CapturedAt: m.clock(),
	}, nil
}
