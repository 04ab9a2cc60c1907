package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// summary holds the robust and plain location statistics of a series.
type summary struct {
	median float64
	mad    float64
	mean   float64
}

func summarize(x []float64) summary {
	med := median(x)
	return summary{
		median: med,
		mad:    medianAbsoluteDeviation(x, med),
		mean:   stat.Mean(x, nil),
	}
}

// median averages the two middle values for even lengths.
func median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// medianAbsoluteDeviation is the unscaled MAD (normal consistency c = 1)
// around med.
func medianAbsoluteDeviation(x []float64, med float64) float64 {
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - med)
	}
	return median(dev)
}
