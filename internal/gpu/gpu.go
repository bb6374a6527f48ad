// Package gpu reads utilization from NVIDIA devices through NVML.
package gpu

import (
	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/dustin/go-humanize"
)

type GPU struct {
	nvml   nvmlController
	device nvml.Device
	name   string
}

// New initializes NVML and opens the device at index.
func New(index int) (*GPU, error) {
	return newGPU(&nvmlWrapper{}, index)
}

func newGPU(ctrl nvmlController, index int) (*GPU, error) {
	errFactory := errors.New()

	if err := ctrl.Initialize(); err != nil {
		return nil, err
	}

	count, err := ctrl.GetDeviceCount()
	if err != nil {
		_ = ctrl.Shutdown()
		return nil, err
	}
	if index < 0 || index >= count {
		_ = ctrl.Shutdown()
		return nil, errFactory.New(ErrDeviceNotFound).WithData(index)
	}

	device, err := ctrl.GetDevice(index)
	if err != nil {
		_ = ctrl.Shutdown()
		return nil, err
	}

	g := &GPU{nvml: ctrl, device: device}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		g.name = name
		logger.Info().Msgf("Detected GPU: %v", name)
	} else {
		logger.Warn().Msgf("Failed to get GPU name: %v", nvml.ErrorString(ret))
	}

	if total, err := g.MemoryTotal(); err == nil {
		logger.Debug().Msgf("Detected GPU memory: %s", humanize.IBytes(total))
	}

	return g, nil
}

func (g *GPU) Name() string {
	return g.name
}

func (g *GPU) Shutdown() error {
	return g.nvml.Shutdown()
}

func (g *GPU) Utilization() (Utilization, error) {
	rates, ret := g.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return Utilization{}, errors.New().Wrap(ErrUtilizationFailed, newNVMLError(ret))
	}

	return Utilization{Core: int(rates.Gpu), Memory: int(rates.Memory)}, nil
}

func (g *GPU) MemoryTotal() (uint64, error) {
	info, ret := g.device.GetMemoryInfo()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrMemoryInfoFailed, newNVMLError(ret))
	}

	return info.Total, nil
}

func (g *GPU) ComputeProcesses() ([]ProcessMemory, error) {
	infos, ret := g.device.GetComputeRunningProcesses()
	if !IsNVMLSuccess(ret) {
		return nil, errors.New().Wrap(ErrProcessListFailed, newNVMLError(ret))
	}

	procs := make([]ProcessMemory, 0, len(infos))
	for _, info := range infos {
		procs = append(procs, ProcessMemory{PID: int32(info.Pid), UsedBytes: info.UsedGpuMemory})
	}

	return procs, nil
}
