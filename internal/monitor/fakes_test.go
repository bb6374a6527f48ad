package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/usagemon/internal/sampler"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSampler struct {
	resource string

	mu       sync.Mutex
	total    float64
	readings []sampler.Reading
	err      error
	calls    int
	panicked bool
}

func (s *fakeSampler) Resource() string { return s.resource }

func (s *fakeSampler) SampleTotal(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicked {
		panic("sampler exploded")
	}
	return s.total, s.err
}

func (s *fakeSampler) SampleEntities(context.Context) ([]sampler.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sampler.Reading(nil), s.readings...), s.err
}

func (s *fakeSampler) set(total float64, readings ...sampler.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.readings = readings
}

func (s *fakeSampler) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
