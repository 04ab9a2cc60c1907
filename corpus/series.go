package corpus

import "math"

// ReadSeries reads a single column text file of samples.
func ReadSeries(path string) ([]float64, error) {
	return readColumn(path)
}

// Normalize min-max scales x into [0, 1]. A constant series maps to zeros.
func Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return out
	}
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
