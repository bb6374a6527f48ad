// Package metricstest holds the behaviour every metrics.Store backend must
// share, so each backend's tests run the same cases.
package metricstest

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/usagemon/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func record(scope metrics.Scope, entity string, value float64, offset time.Duration) metrics.Record {
	return metrics.Record{
		Resource:  "cpu",
		Scope:     scope,
		Entity:    entity,
		Value:     value,
		Timestamp: base.Add(offset),
	}
}

// RunStoreSuite exercises a Store produced by open. open is called once per
// subtest and must return an empty store.
func RunStoreSuite(t *testing.T, open func(t *testing.T) metrics.Store) {
	t.Helper()

	t.Run("LatestOnEmptySeries", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		_, ok, err := store.QueryLatest(ctx, metrics.Key{Resource: "cpu", Scope: metrics.ScopeHourly, Entity: "x"})
		require.NoError(t, err)
		assert.False(t, ok)

		recent, err := store.QueryRecent(ctx, metrics.Key{Resource: "cpu", Scope: metrics.ScopeHourly, Entity: "x"}, 24)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("RecentIsNewestFirstAndLimited", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, record(metrics.ScopeHourly, "chrome", float64(i), time.Duration(i)*time.Hour)))
		}

		key := metrics.Key{Resource: "cpu", Scope: metrics.ScopeHourly, Entity: "chrome"}
		recent, err := store.QueryRecent(ctx, key, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, []float64{4, 3, 2}, []float64{recent[0].Value, recent[1].Value, recent[2].Value})
		assert.True(t, recent[0].Timestamp.Equal(base.Add(4*time.Hour)))

		latest, ok, err := store.QueryLatest(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 4.0, latest.Value)
		assert.Equal(t, metrics.ScopeHourly, latest.Scope)
		assert.Equal(t, "chrome", latest.Entity)
	})

	t.Run("SeriesAreIsolated", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.Append(ctx, record(metrics.ScopeHourly, "chrome", 10, 0)))
		require.NoError(t, store.Append(ctx, record(metrics.ScopeDaily, "chrome", 20, time.Hour)))
		require.NoError(t, store.Append(ctx, record(metrics.ScopeHourly, "postgres", 30, 2*time.Hour)))

		other := record(metrics.ScopeHourly, "chrome", 40, 3*time.Hour)
		other.Resource = "memory"
		require.NoError(t, store.Append(ctx, other))

		recent, err := store.QueryRecent(ctx, metrics.Key{Resource: "cpu", Scope: metrics.ScopeHourly, Entity: "chrome"}, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, 10.0, recent[0].Value)

		entities, err := store.Entities(ctx, "cpu", metrics.ScopeHourly)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"chrome", "postgres"}, entities)

		entities, err = store.Entities(ctx, "cpu", metrics.ScopeWeekly)
		require.NoError(t, err)
		assert.Empty(t, entities)
	})

	t.Run("RejectsInvalidRecord", func(t *testing.T) {
		store := open(t)

		bad := record(metrics.Scope("monthly"), "chrome", 1, 0)
		assert.Error(t, store.Append(context.Background(), bad))

		bad = record(metrics.ScopeHourly, "", 1, 0)
		assert.Error(t, store.Append(context.Background(), bad))
	})
}
