package gpu

import (
	"testing"

	"codeberg.org/mutker/usagemon/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	count    int
	device   nvml.Device
	shutdown int
}

func (*fakeController) Initialize() error { return nil }

func (c *fakeController) Shutdown() error {
	c.shutdown++
	return nil
}

func (c *fakeController) GetDeviceCount() (int, error) { return c.count, nil }

func (c *fakeController) GetDevice(int) (nvml.Device, error) { return c.device, nil }

// fakeDevice overrides the handful of device calls used for monitoring.
type fakeDevice struct {
	nvml.Device
	rates nvml.Utilization
	mem   nvml.Memory
	procs []nvml.ProcessInfo
	ret   nvml.Return
}

func (*fakeDevice) GetName() (string, nvml.Return) { return "Fake RTX", nvml.SUCCESS }

func (d *fakeDevice) GetUtilizationRates() (nvml.Utilization, nvml.Return) { return d.rates, d.ret }

func (d *fakeDevice) GetMemoryInfo() (nvml.Memory, nvml.Return) { return d.mem, d.ret }

func (d *fakeDevice) GetComputeRunningProcesses() ([]nvml.ProcessInfo, nvml.Return) {
	return d.procs, d.ret
}

func TestNewRejectsMissingDevice(t *testing.T) {
	ctrl := &fakeController{count: 1}

	_, err := newGPU(ctrl, 3)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrDeviceNotFound))
	assert.Equal(t, 1, ctrl.shutdown)
}

func TestDeviceReadings(t *testing.T) {
	dev := &fakeDevice{
		rates: nvml.Utilization{Gpu: 73, Memory: 12},
		mem:   nvml.Memory{Total: 8 << 30},
		procs: []nvml.ProcessInfo{{Pid: 4242, UsedGpuMemory: 1 << 30}},
		ret:   nvml.SUCCESS,
	}
	g, err := newGPU(&fakeController{count: 1, device: dev}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Fake RTX", g.Name())

	util, err := g.Utilization()
	require.NoError(t, err)
	assert.Equal(t, Utilization{Core: 73, Memory: 12}, util)

	total, err := g.MemoryTotal()
	require.NoError(t, err)
	assert.Equal(t, uint64(8<<30), total)

	procs, err := g.ComputeProcesses()
	require.NoError(t, err)
	assert.Equal(t, []ProcessMemory{{PID: 4242, UsedBytes: 1 << 30}}, procs)
}

func TestDeviceReadingFailure(t *testing.T) {
	dev := &fakeDevice{ret: nvml.ERROR_GPU_IS_LOST}
	g, err := newGPU(&fakeController{count: 1, device: dev}, 0)
	require.NoError(t, err)

	_, err = g.Utilization()
	assert.True(t, errors.HasCode(err, ErrUtilizationFailed))

	_, err = g.ComputeProcesses()
	assert.True(t, errors.HasCode(err, ErrProcessListFailed))
}
