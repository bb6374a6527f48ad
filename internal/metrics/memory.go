package metrics

import (
	"context"
	"sort"
	"sync"

	"codeberg.org/mutker/usagemon/internal/errors"
)

// memoryStore keeps records in process memory. Data is lost on restart.
type memoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns an in-memory Store for tests and ephemeral runs.
func NewMemoryStore() Store {
	return &memoryStore{
		records: make([]Record, 0, 256),
	}
}

func (s *memoryStore) Append(_ context.Context, record Record) error {
	errFactory := errors.New()

	if err := record.Validate(); err != nil {
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) QueryLatest(ctx context.Context, key Key) (Record, bool, error) {
	records, err := s.QueryRecent(ctx, key, 1)
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}

	return records[0], true, nil
}

func (s *memoryStore) QueryRecent(_ context.Context, key Key, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	// Walk backwards so equal timestamps keep append order, newest first
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Key() == key {
			matched = append(matched, s.records[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

func (s *memoryStore) Entities(_ context.Context, resource string, scope Scope) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var entities []string
	for _, record := range s.records {
		if record.Resource != resource || record.Scope != scope {
			continue
		}
		if _, ok := seen[record.Entity]; ok {
			continue
		}
		seen[record.Entity] = struct{}{}
		entities = append(entities, record.Entity)
	}

	sort.Strings(entities)
	return entities, nil
}

func (*memoryStore) Close() error {
	return nil
}
