package rollup

import (
	"context"
	stderrors "errors"
	"sync"

	"codeberg.org/mutker/usagemon/internal/metrics"
)

var errInjected = stderrors.New("injected store failure")

// faultyStore wraps a Store and fails selected operations.
type faultyStore struct {
	metrics.Store

	mu           sync.Mutex
	failAppend   map[string]bool
	failLatest   bool
	failEntities bool
	appends      []metrics.Record
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: metrics.NewMemoryStore(), failAppend: make(map[string]bool)}
}

func (s *faultyStore) Append(ctx context.Context, rec metrics.Record) error {
	s.mu.Lock()
	s.appends = append(s.appends, rec)
	fail := s.failAppend[rec.Entity]
	s.mu.Unlock()

	if fail {
		return errInjected
	}

	return s.Store.Append(ctx, rec)
}

func (s *faultyStore) QueryLatest(ctx context.Context, key metrics.Key) (metrics.Record, bool, error) {
	if s.failLatest {
		return metrics.Record{}, false, errInjected
	}

	return s.Store.QueryLatest(ctx, key)
}

func (s *faultyStore) Entities(ctx context.Context, resource string, scope metrics.Scope) ([]string, error) {
	if s.failEntities {
		return nil, errInjected
	}

	return s.Store.Entities(ctx, resource, scope)
}

func (s *faultyStore) attempted(scope metrics.Scope) []metrics.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []metrics.Record
	for _, rec := range s.appends {
		if rec.Scope == scope {
			out = append(out, rec)
		}
	}

	return out
}
