package monitor

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
)

// Collector drives every monitor once per interval. It is the only caller of
// Monitor.Tick.
type Collector struct {
	interval time.Duration
	monitors []*Monitor
}

func NewCollector(interval time.Duration, monitors ...*Monitor) (*Collector, error) {
	if interval <= 0 {
		return nil, errors.New().WithData(errors.ErrInvalidInterval, interval)
	}

	return &Collector{interval: interval, monitors: monitors}, nil
}

// Run ticks until ctx is cancelled. Cancellation is observed between ticks.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.Info().
		Dur("interval", c.interval).
		Int("resources", len(c.monitors)).
		Msg("Collection started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Collection stopped")
			return nil
		case <-ticker.C:
			c.TickAll(ctx)
		}
	}
}

// TickAll runs one tick on every monitor. A failing or panicking monitor
// does not affect the others.
func (c *Collector) TickAll(ctx context.Context) {
	for _, m := range c.monitors {
		if err := safeTick(ctx, m); err != nil {
			logger.Warn().
				Str("code", string(errors.CodeOf(err))).
				Str("resource", m.Resource()).
				Err(err).
				Msg("Tick failed")
		}
	}
}

func safeTick(ctx context.Context, m *Monitor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New().WithMessage(ErrTickFault, fmt.Sprintf("panic: %v", r))
		}
	}()

	return m.Tick(ctx)
}
