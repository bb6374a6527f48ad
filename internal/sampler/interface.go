// Package sampler reads instantaneous utilization percentages from the host.
package sampler

import "context"

// Resource names of the built-in samplers
const (
	ResourceCPU    = "cpu"
	ResourceMemory = "memory"
	ResourceGPU    = "gpu"
)

// Reading is one utilization percentage for one entity.
type Reading struct {
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

// Sampler reads the aggregate value of a resource and its per-entity
// breakdown. Implementations may block on host I/O and must be safe for
// concurrent use. Entities that vanish or can't be read during a call are
// skipped; only failure of the whole call is returned.
type Sampler interface {
	Resource() string
	SampleTotal(ctx context.Context) (float64, error)
	SampleEntities(ctx context.Context) ([]Reading, error)
}
