package monitor

import "codeberg.org/mutker/usagemon/internal/errors"

const (
	ErrSampling        = errors.ErrSampling
	ErrTickFault       = errors.ErrTickFault
	ErrUnknownResource = errors.ErrUnknownResource
	ErrInvalidMonitor  = errors.ErrorCode("monitor_invalid_config")
)
