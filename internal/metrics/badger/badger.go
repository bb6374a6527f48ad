// Package badger implements metrics.Store on BadgerDB.
//
// Every series (resource, scope, entity) owns a fixed-width key prefix built
// from the xxhash of its name, followed by the big-endian record timestamp,
// so a reverse prefix scan yields records newest first. A second key space
// indexes entity names per (resource, scope) for Entities.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	recordSpace byte = 'r'
	entitySpace byte = 'e'
)

// Storage implements metrics.Store using BadgerDB
type Storage struct {
	db *badger.DB
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool
}

// New opens a BadgerDB store
func New(cfg Config) (*Storage, error) {
	errFactory := errors.New()

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// Rollups are small and rare; keep the footprint laptop sized
	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(4 << 20).
		WithIndexCacheSize(2 << 20).
		WithNumCompactors(2).
		WithValueLogFileSize(16 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errFactory.Wrap(metrics.ErrStorageInit, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Append(ctx context.Context, record metrics.Record) error {
	errFactory := errors.New()

	if err := record.Validate(); err != nil {
		return errFactory.Wrap(metrics.ErrStoreWrite, err)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(metrics.ErrStoreWrite, err)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return errFactory.Wrap(metrics.ErrStoreWrite, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(record.Key(), record.Timestamp.UnixNano())

		// Records are never overwritten; nudge colliding timestamps forward
		for {
			_, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				break
			}
			if err != nil {
				return err
			}
			key = nextKey(key)
		}

		if err := txn.Set(key, value); err != nil {
			return err
		}

		return txn.Set(entityKey(record.Resource, record.Scope, record.Entity), []byte(record.Entity))
	})
	if err != nil {
		return errFactory.Wrap(metrics.ErrStoreWrite, err)
	}

	return nil
}

func (s *Storage) QueryLatest(ctx context.Context, key metrics.Key) (metrics.Record, bool, error) {
	records, err := s.QueryRecent(ctx, key, 1)
	if err != nil || len(records) == 0 {
		return metrics.Record{}, false, err
	}

	return records[0], true, nil
}

func (s *Storage) QueryRecent(ctx context.Context, key metrics.Key, limit int) ([]metrics.Record, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(metrics.ErrStoreRead, err)
	}

	prefix := seriesPrefix(key)
	records := make([]metrics.Record, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		opts.PrefetchSize = limit

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key of the prefix
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var record metrics.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}

			// Guard against hash collisions between series
			if record.Key() != key {
				continue
			}

			records = append(records, record)
			if len(records) >= limit {
				return nil
			}
		}

		return nil
	})
	if err != nil {
		return nil, errFactory.Wrap(metrics.ErrStoreRead, err)
	}

	return records, nil
}

func (s *Storage) Entities(ctx context.Context, resource string, scope metrics.Scope) ([]string, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(metrics.ErrStoreRead, err)
	}

	prefix := entityPrefix(resource, scope)
	var entities []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entities = append(entities, string(value))
		}

		return nil
	})
	if err != nil {
		return nil, errFactory.Wrap(metrics.ErrStoreRead, err)
	}

	sort.Strings(entities)
	return entities, nil
}

// RunGC reclaims value log space until a pass rewrites nothing.
func (s *Storage) RunGC(discardRatio float64) error {
	for {
		err := s.db.RunValueLogGC(discardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			return nil
		default:
			return errors.New().Wrap(metrics.ErrStoreWrite, err)
		}
	}
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(metrics.ErrStorageClose, err)
	}

	return nil
}

func seriesHash(parts ...string) uint64 {
	h := xxhash.New()
	for _, part := range parts {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64()
}

func seriesPrefix(key metrics.Key) []byte {
	prefix := make([]byte, 9)
	prefix[0] = recordSpace
	binary.BigEndian.PutUint64(prefix[1:], seriesHash(key.Resource, string(key.Scope), key.Entity))

	return prefix
}

func recordKey(key metrics.Key, nanos int64) []byte {
	buf := make([]byte, 17)
	copy(buf, seriesPrefix(key))
	// Flip the sign bit so pre-1970 timestamps still sort before later ones
	binary.BigEndian.PutUint64(buf[9:], uint64(nanos)^(1<<63))

	return buf
}

func nextKey(key []byte) []byte {
	next := bytes.Clone(key)
	stamp := binary.BigEndian.Uint64(next[9:])
	if stamp < math.MaxUint64 {
		stamp++
	}
	binary.BigEndian.PutUint64(next[9:], stamp)

	return next
}

func entityPrefix(resource string, scope metrics.Scope) []byte {
	prefix := make([]byte, 9)
	prefix[0] = entitySpace
	binary.BigEndian.PutUint64(prefix[1:], seriesHash(resource, string(scope)))

	return prefix
}

func entityKey(resource string, scope metrics.Scope, entity string) []byte {
	prefix := entityPrefix(resource, scope)
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)

	return binary.BigEndian.AppendUint64(buf, xxhash.Sum64String(entity))
}
