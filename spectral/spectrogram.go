package spectral

import (
	"fmt"
	"math"
)

// Spectrogram is a power spectral density per frequency bin and time slice.
// Power is indexed [frequency][time].
type Spectrogram struct {
	Freqs []float64
	Times []float64
	Power [][]float64
}

// NewSpectrogram computes consecutive 256 sample densities of x, each
// segment overlapping the previous one by an eighth.
func NewSpectrogram(x []float64, fs float64) (*Spectrogram, error) {
	e := estimator{nperseg: defaultSegment, noverlap: defaultSegment / 8, detrend: true}
	freqs, psd, times, err := e.segments(x, fs)
	if err != nil {
		return nil, err
	}
	power := make([][]float64, len(freqs))
	for k := range power {
		power[k] = make([]float64, len(times))
		for t, p := range psd {
			power[k][t] = p[k]
		}
	}
	return &Spectrogram{Freqs: freqs, Times: times, Power: power}, nil
}

// Range returns the smallest and largest power value.
func (s *Spectrogram) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range s.Power {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// Merge stacks spectrograms along the frequency axis in the given order.
// They must share the same time slices; the times of the first are kept.
// With normaliseLocal each input is first scaled to [0, 1] on its own.
func Merge(specs []*Spectrogram, normaliseLocal bool) (*Spectrogram, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	merged := &Spectrogram{Times: append([]float64(nil), specs[0].Times...)}
	for i, s := range specs {
		if len(s.Times) != len(merged.Times) {
			return nil, fmt.Errorf("spectrogram %d has %d time slices, want %d", i, len(s.Times), len(merged.Times))
		}
		lo, hi := s.Range()
		for k, row := range s.Power {
			out := append([]float64(nil), row...)
			if normaliseLocal {
				for t, v := range out {
					if hi > lo {
						out[t] = (v - lo) / (hi - lo)
					} else {
						out[t] = 0
					}
				}
			}
			merged.Freqs = append(merged.Freqs, s.Freqs[k])
			merged.Power = append(merged.Power, out)
		}
	}
	return merged, nil
}
