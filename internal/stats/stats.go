// Package stats holds the arithmetic shared by the aggregation stages.
package stats

import "math"

// Round rounds v half away from zero to two decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// Valid reports whether v is a usable utilization percentage.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
