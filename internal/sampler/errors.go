package sampler

import "codeberg.org/mutker/usagemon/internal/errors"

const (
	ErrSampleTotal    = errors.ErrorCode("sampler_total_failed")
	ErrListProcesses  = errors.ErrorCode("sampler_list_processes_failed")
	ErrCoreCount      = errors.ErrorCode("sampler_core_count_failed")
	ErrDeviceSampling = errors.ErrorCode("sampler_device_failed")
)
