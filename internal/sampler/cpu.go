package sampler

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// CPU samples processor utilization. Per-process values are divided by the
// logical core count so they share the 0-100 scale of the total.
//
// Every CPU keeps its own baselines: the host total is measured against a
// private cpu.Times reading and per-process values against its own handle
// table. Two instances never disturb each other's measurements.
type CPU struct {
	interval time.Duration
	cores    float64
	procs    *processTable

	mu   sync.Mutex
	last cpu.TimesStat
}

// NewCPU creates a CPU sampler. interval is the measuring window of the
// total; zero measures since the previous call. Baselines are taken here so
// the first sample already covers a real span.
func NewCPU(ctx context.Context, interval time.Duration) (*CPU, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, errors.New().Wrap(ErrCoreCount, err)
	}
	if cores < 1 {
		cores = 1
	}

	c := &CPU{
		interval: interval,
		cores:    float64(cores),
		procs:    newProcessTable(),
	}

	if c.last, err = hostTimes(ctx); err != nil {
		return nil, err
	}
	if _, err := c.SampleEntities(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (*CPU) Resource() string {
	return ResourceCPU
}

func (c *CPU) SampleTotal(ctx context.Context) (float64, error) {
	if c.interval > 0 {
		start, err := hostTimes(ctx)
		if err != nil {
			return 0, err
		}

		timer := time.NewTimer(c.interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, errors.New().Wrap(ErrSampleTotal, ctx.Err())
		case <-timer.C:
		}

		end, err := hostTimes(ctx)
		if err != nil {
			return 0, err
		}

		return busyPercent(start, end), nil
	}

	now, err := hostTimes(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	prev := c.last
	c.last = now
	c.mu.Unlock()

	return busyPercent(prev, now), nil
}

func (c *CPU) SampleEntities(ctx context.Context) ([]Reading, error) {
	return c.procs.sample(ctx, ResourceCPU, func(ctx context.Context, p *process.Process) (float64, error) {
		percent, err := p.PercentWithContext(ctx, 0)
		if err != nil {
			return 0, err
		}

		return percent / c.cores, nil
	})
}

func hostTimes(ctx context.Context) (cpu.TimesStat, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, errors.New().Wrap(ErrSampleTotal, err)
	}
	if len(times) == 0 {
		return cpu.TimesStat{}, errors.New().WithMessage(ErrSampleTotal, "no cpu times reported")
	}

	return times[0], nil
}

// busyPercent is the share of non-idle time between two readings.
func busyPercent(prev, now cpu.TimesStat) float64 {
	prevAll, prevBusy := splitTimes(prev)
	nowAll, nowBusy := splitTimes(now)

	if nowBusy <= prevBusy {
		return 0
	}
	if nowAll <= prevAll {
		return 100
	}

	return math.Min(100, (nowBusy-prevBusy)/(nowAll-prevAll)*100)
}

func splitTimes(t cpu.TimesStat) (all, busy float64) {
	all = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	return all, all - t.Idle - t.Iowait
}
