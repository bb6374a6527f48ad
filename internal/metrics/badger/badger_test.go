package badger_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/metrics/badger"
	"codeberg.org/mutker/usagemon/internal/metrics/metricstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) metrics.Store {
	t.Helper()

	store, err := badger.New(badger.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStorage(t *testing.T) {
	metricstest.RunStoreSuite(t, openInMemory)
}

func TestAppendKeepsRecordsWithEqualTimestamps(t *testing.T) {
	store := openInMemory(t)
	ctx := context.Background()
	stamp := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	for _, value := range []float64{1, 2} {
		require.NoError(t, store.Append(ctx, metrics.Record{
			Resource:  "cpu",
			Scope:     metrics.ScopeDaily,
			Entity:    "chrome",
			Value:     value,
			Timestamp: stamp,
		}))
	}

	recent, err := store.QueryRecent(ctx, metrics.Key{Resource: "cpu", Scope: metrics.ScopeDaily, Entity: "chrome"}, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2.0, recent[0].Value)
}

func TestPersistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := metrics.Key{Resource: "gpu", Scope: metrics.ScopeHourly, Entity: metrics.TotalEntity}

	store, err := badger.New(badger.Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, metrics.Record{
		Resource:  key.Resource,
		Scope:     key.Scope,
		Entity:    key.Entity,
		Value:     7.25,
		Timestamp: time.Now(),
	}))
	require.NoError(t, store.Close())

	store, err = badger.New(badger.Config{Path: dir})
	require.NoError(t, err)
	defer store.Close()

	latest, ok, err := store.QueryLatest(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7.25, latest.Value)
}

func TestRunGCWithNothingToRewrite(t *testing.T) {
	store, err := badger.New(badger.Config{Path: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.RunGC(0.5))
}
