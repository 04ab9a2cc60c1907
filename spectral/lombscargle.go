package spectral

import (
	"errors"
	"fmt"
	"math"
)

var ErrZeroDivision = errors.New("zero division in Lomb-Scargle")

const (
	lombScargleFreqs = 1000
	lombScargleLow   = 0.001
	lombScargleHigh  = 1.6e6
	lombScargleScale = 10
)

// LombScargleFreqs returns the angular frequencies the diagnostics evaluate
// the Lomb-Scargle periodogram at.
func LombScargleFreqs() []float64 {
	freqs := make([]float64, lombScargleFreqs)
	step := (lombScargleHigh - lombScargleLow) / float64(lombScargleFreqs-1)
	for i := range freqs {
		freqs[i] = (lombScargleLow + float64(i)*step) * lombScargleScale
	}
	return freqs
}

// SampleTimes spreads n sample times evenly from offset/fs to
// (offset+n)/fs seconds, both ends included.
func SampleTimes(offset, n int, fs float64) []float64 {
	start := float64(offset) / fs
	end := start + float64(n)/fs
	times := make([]float64, n)
	if n == 1 {
		times[0] = start
		return times
	}
	step := (end - start) / float64(n-1)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return times
}

// LombScargle computes the normalized Lomb-Scargle periodogram of the
// unevenly sampled series y(times) at the angular frequencies freqs.
func LombScargle(times, y, freqs []float64) (*Spectrum, error) {
	if len(times) != len(y) {
		return nil, fmt.Errorf("%d times for %d samples", len(times), len(y))
	}
	var energy float64
	for _, v := range y {
		energy += v * v
	}
	if energy == 0 {
		return nil, ErrZeroDivision
	}

	power := make([]float64, len(freqs))
	for i, w := range freqs {
		if w == 0 {
			return nil, ErrZeroDivision
		}
		var s2, c2 float64
		for _, t := range times {
			s2 += math.Sin(2 * w * t)
			c2 += math.Cos(2 * w * t)
		}
		tau := math.Atan2(s2, c2) / (2 * w)

		var yc, ys, cc, ss float64
		for j, t := range times {
			c := math.Cos(w * (t - tau))
			s := math.Sin(w * (t - tau))
			yc += y[j] * c
			ys += y[j] * s
			cc += c * c
			ss += s * s
		}
		var p float64
		if cc > 0 {
			p += yc * yc / cc
		}
		if ss > 0 {
			p += ys * ys / ss
		}
		power[i] = p / energy
	}
	return &Spectrum{Freqs: append([]float64(nil), freqs...), Power: power}, nil
}
