package monitor

import (
	"context"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/window"
)

// Service answers queries across all monitored resources.
type Service struct {
	order    []string
	monitors map[string]*Monitor
}

func NewService(monitors ...*Monitor) *Service {
	s := &Service{monitors: make(map[string]*Monitor, len(monitors))}
	for _, m := range monitors {
		s.order = append(s.order, m.Resource())
		s.monitors[m.Resource()] = m
	}

	return s
}

// Resources lists the monitored resources in registration order.
func (s *Service) Resources() []string {
	return append([]string(nil), s.order...)
}

func (s *Service) lookup(resource string) (*Monitor, error) {
	m, ok := s.monitors[resource]
	if !ok {
		return nil, errors.New().WithData(ErrUnknownResource, resource)
	}

	return m, nil
}

// Realtime returns the cached snapshot of resource.
func (s *Service) Realtime(ctx context.Context, resource string) (Snapshot, error) {
	m, err := s.lookup(resource)
	if err != nil {
		return Snapshot{}, err
	}

	return m.Snapshot(ctx)
}

// RollingWindow returns a copy of the rolling window of resource.
func (s *Service) RollingWindow(resource string) ([]window.Entry, error) {
	m, err := s.lookup(resource)
	if err != nil {
		return nil, err
	}

	return m.Window(), nil
}

// MergedWindow combines the totals of all resources over the last limit
// minutes.
func (s *Service) MergedWindow(limit int) []MergedPoint {
	windows := make(map[string][]window.Entry, len(s.monitors))
	for resource, m := range s.monitors {
		windows[resource] = m.Window()
	}

	return MergeWindows(windows, limit)
}
