package main

import (
	"context"
	"time"

	"codeberg.org/mutker/usagemon/internal/config"
	"codeberg.org/mutker/usagemon/internal/gpu"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/monitor"
	"codeberg.org/mutker/usagemon/internal/rollup"
	"codeberg.org/mutker/usagemon/internal/sampler"
	"codeberg.org/mutker/usagemon/internal/selector"
)

// queryCPUWindow is the measuring window of the CPU total in snapshots.
const queryCPUWindow = time.Second

// buildMonitors creates one monitor per enabled resource. The returned
// function releases device handles.
func buildMonitors(ctx context.Context, cfg *config.Config, store metrics.Store) ([]*monitor.Monitor, func(), error) {
	comparator, err := rollup.NewComparator(store, cfg.Anomaly.IncreaseRatio, cfg.Anomaly.Exempt)
	if err != nil {
		return nil, nil, err
	}

	var (
		monitors []*monitor.Monitor
		closers  []func()
	)
	shutdown := func() {
		for _, c := range closers {
			c()
		}
	}

	names, enabled := cfg.Resources.Enabled()
	for _, name := range names {
		res := enabled[name]

		s, closer, err := newSampler(ctx, name, res)
		if err != nil {
			if name == sampler.ResourceGPU {
				logger.Warn().Err(err).Msg("GPU monitoring disabled")
				continue
			}
			shutdown()
			return nil, nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		query, err := newQuerySampler(ctx, name, s)
		if err != nil {
			shutdown()
			return nil, nil, err
		}

		m, err := monitor.New(monitor.Config{
			Sampler:      s,
			QuerySampler: query,
			Selector:     selector.New(res.Rules()),
			Store:        store,
			Comparator:   comparator,
			Interval:     cfg.Interval,
			CacheTTL:     cfg.CacheTTL,
		})
		if err != nil {
			shutdown()
			return nil, nil, err
		}

		logger.Info().
			Str("resource", name).
			Int("top_k", res.TopK).
			Float64("threshold", res.Threshold).
			Bool("freeze", res.Freeze).
			Msg("Monitoring resource")

		monitors = append(monitors, m)
	}

	return monitors, shutdown, nil
}

func newSampler(ctx context.Context, name string, res config.ResourceConfig) (sampler.Sampler, func(), error) {
	switch name {
	case sampler.ResourceCPU:
		s, err := sampler.NewCPU(ctx, 0)
		return s, nil, err
	case sampler.ResourceMemory:
		return sampler.NewMemory(), nil, nil
	default:
		device, err := gpu.New(res.Device)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := device.Shutdown(); err != nil {
				logger.Warn().Err(err).Msg("Failed to shut down NVML")
			}
		}
		return sampler.NewGPU(device), closer, nil
	}
}

// newQuerySampler returns the sampler behind real-time snapshots. CPU
// readings are deltas against the previous call, so snapshots get their own
// instance measuring the total over a fixed window. Memory and GPU readings
// are instantaneous and share the collector's sampler.
func newQuerySampler(ctx context.Context, name string, collector sampler.Sampler) (sampler.Sampler, error) {
	if name != sampler.ResourceCPU {
		return collector, nil
	}

	return sampler.NewCPU(ctx, queryCPUWindow)
}
