package sampler

import (
	"context"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/gpu"
	"github.com/shirou/gopsutil/v4/process"
)

// NameLookup resolves a process name from its PID.
type NameLookup func(ctx context.Context, pid int32) (string, error)

// GPU samples device core utilization. Per-process values are the share of
// device memory held by each compute process.
type GPU struct {
	device gpu.Monitor
	lookup NameLookup
}

func NewGPU(device gpu.Monitor) *GPU {
	return &GPU{device: device, lookup: processName}
}

func (*GPU) Resource() string {
	return ResourceGPU
}

func (g *GPU) SampleTotal(context.Context) (float64, error) {
	util, err := g.device.Utilization()
	if err != nil {
		return 0, errors.New().Wrap(ErrDeviceSampling, err)
	}

	return float64(util.Core), nil
}

func (g *GPU) SampleEntities(ctx context.Context) ([]Reading, error) {
	errFactory := errors.New()

	total, err := g.device.MemoryTotal()
	if err != nil {
		return nil, errFactory.Wrap(ErrDeviceSampling, err)
	}
	if total == 0 {
		return nil, nil
	}

	procs, err := g.device.ComputeProcesses()
	if err != nil {
		return nil, errFactory.Wrap(ErrDeviceSampling, err)
	}

	readings := make([]Reading, 0, len(procs))
	for _, p := range procs {
		name, err := g.lookup(ctx, p.PID)
		if err != nil {
			skipProcess(ResourceGPU, p.PID, err)
			continue
		}

		readings = append(readings, Reading{
			Entity: name,
			Value:  float64(p.UsedBytes) / float64(total) * 100,
		})
	}

	return readings, nil
}

func processName(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}

	return p.NameWithContext(ctx)
}
