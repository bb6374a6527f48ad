package gpu

// Monitor reads utilization from a single GPU
type Monitor interface {
	Name() string
	Utilization() (Utilization, error)
	MemoryTotal() (uint64, error)
	ComputeProcesses() ([]ProcessMemory, error)
	Shutdown() error
}

type (
	// Utilization holds the percent of time the GPU and its memory
	// controller were busy over the last sample period.
	Utilization struct {
		Core   int
		Memory int
	}

	// ProcessMemory is the device memory held by one compute process.
	ProcessMemory struct {
		PID       int32
		UsedBytes uint64
	}
)
