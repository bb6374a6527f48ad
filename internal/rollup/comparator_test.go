package rollup

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyRecord(entity string, value float64, ts time.Time) metrics.Record {
	return metrics.Record{
		Resource:  "cpu",
		Scope:     metrics.ScopeHourly,
		Entity:    entity,
		Value:     value,
		Timestamp: ts,
	}
}

func TestNewComparatorRejectsRatio(t *testing.T) {
	_, err := NewComparator(metrics.NewMemoryStore(), 1, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidRatio))
}

func TestCompareVerdicts(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	store := newFaultyStore()
	require.NoError(t, store.Store.Append(ctx, hourlyRecord("db", 10, ts)))

	c, err := NewComparator(store, DefaultIncreaseRatio, []string{"Other"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		record metrics.Record
		want   Verdict
	}{
		{name: "first record", record: hourlyRecord("web", 50, ts.Add(time.Hour)), want: VerdictFirst},
		{name: "increase", record: hourlyRecord("db", 12.01, ts.Add(time.Hour)), want: VerdictIncrease},
		{name: "exactly ratio", record: hourlyRecord("db", 12, ts.Add(time.Hour)), want: VerdictNormal},
		{name: "decrease", record: hourlyRecord("db", 2, ts.Add(time.Hour)), want: VerdictNormal},
		{name: "exempt bucket", record: hourlyRecord("Other", 99, ts.Add(time.Hour)), want: VerdictExempt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := c.Compare(ctx, tt.record)
			assert.Equal(t, tt.want, ev.Verdict, ev.Verdict.String())
			if tt.want == VerdictIncrease || tt.want == VerdictNormal {
				assert.Equal(t, 10.0, ev.Previous)
			}
		})
	}
}

func TestCompareLookupFailure(t *testing.T) {
	store := newFaultyStore()
	store.failLatest = true

	c, err := NewComparator(store, DefaultIncreaseRatio, nil)
	require.NoError(t, err)

	ev := c.Compare(context.Background(), hourlyRecord("db", 10, time.Now()))
	assert.Equal(t, VerdictUnavailable, ev.Verdict)
}
