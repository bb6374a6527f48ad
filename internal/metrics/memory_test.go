package metrics_test

import (
	"testing"

	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/metrics/metricstest"
)

func TestMemoryStore(t *testing.T) {
	metricstest.RunStoreSuite(t, func(t *testing.T) metrics.Store {
		return metrics.NewMemoryStore()
	})
}
