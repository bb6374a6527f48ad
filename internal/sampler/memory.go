package sampler

import (
	"context"

	"codeberg.org/mutker/usagemon/internal/errors"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Memory samples physical memory utilization.
type Memory struct {
	procs *processTable
}

func NewMemory() *Memory {
	return &Memory{procs: newProcessTable()}
}

func (*Memory) Resource() string {
	return ResourceMemory
}

func (*Memory) SampleTotal(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, errors.New().Wrap(ErrSampleTotal, err)
	}

	return vm.UsedPercent, nil
}

func (m *Memory) SampleEntities(ctx context.Context) ([]Reading, error) {
	return m.procs.sample(ctx, ResourceMemory, func(ctx context.Context, p *process.Process) (float64, error) {
		percent, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			return 0, err
		}

		return float64(percent), nil
	})
}
