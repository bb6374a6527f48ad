package sampler

import (
	"context"
	"os"
	"sync"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"github.com/shirou/gopsutil/v4/process"
)

// measureFunc reads one value from a process handle.
type measureFunc func(ctx context.Context, p *process.Process) (float64, error)

// processTable keeps process handles alive between calls. gopsutil computes
// CPU percentages as a delta against the previous call on the same handle,
// so handles must outlive a single sample.
type processTable struct {
	mu      sync.Mutex
	handles map[int32]*process.Process
}

func newProcessTable() *processTable {
	return &processTable{handles: make(map[int32]*process.Process)}
}

func (t *processTable) sample(ctx context.Context, resource string, measure measureFunc) ([]Reading, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, errors.New().Wrap(ErrListProcesses, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	alive := make(map[int32]*process.Process, len(pids))
	readings := make([]Reading, 0, len(pids))

	for _, pid := range pids {
		if pid == 0 {
			continue
		}

		handle, ok := t.handles[pid]
		if !ok {
			handle, err = process.NewProcessWithContext(ctx, pid)
			if err != nil {
				skipProcess(resource, pid, err)
				continue
			}
		}

		name, err := handle.NameWithContext(ctx)
		if err != nil {
			skipProcess(resource, pid, err)
			continue
		}

		value, err := measure(ctx, handle)
		if err != nil {
			skipProcess(resource, pid, err)
			continue
		}

		alive[pid] = handle
		readings = append(readings, Reading{Entity: name, Value: value})
	}

	t.handles = alive

	return readings, nil
}

func skipProcess(resource string, pid int32, err error) {
	reason := "unreadable"
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, os.ErrNotExist):
		reason = "vanished"
	case errors.Is(err, os.ErrPermission):
		reason = "access_denied"
	}

	logger.Debug().
		Str("resource", resource).
		Int32("pid", pid).
		Str("reason", reason).
		Err(err).
		Msg("Skipping process")
}
