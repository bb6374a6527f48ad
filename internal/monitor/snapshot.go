package monitor

import (
	"context"
	"time"

	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/sampler"
)

// Snapshot is the real-time view of one resource. Missing rollups are nil.
type Snapshot struct {
	Resource   string            `json:"resource"`
	Total      float64           `json:"total"`
	Entities   []sampler.Reading `json:"entities"`
	LastHourly *float64          `json:"last_hourly"`
	LastDaily  *float64          `json:"last_daily"`
	LastWeekly *float64          `json:"last_weekly"`
	CapturedAt time.Time         `json:"captured_at"`
}

// latestTotal returns the most recent aggregate rollup of scope. Lookup
// failures are logged and reported as missing.
func latestTotal(ctx context.Context, store metrics.Store, resource string, scope metrics.Scope) *float64 {
	rec, found, err := store.QueryLatest(ctx, metrics.Key{
		Resource: resource,
		Scope:    scope,
		Entity:   metrics.TotalEntity,
	})
	if err != nil {
		logger.Warn().
			Str("resource", resource).
			Str("scope", scope.String()).
			Err(err).
			Msg("Failed to read latest rollup")
		return nil
	}
	if !found {
		return nil
	}

	v := rec.Value
	return &v
}
