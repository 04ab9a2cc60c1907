// Package spectral computes the spectral diagnostics used to inspect raw
// telescope recordings for RFI.
//
// All estimators window their segments with a Tukey window (alpha 0.5) and
// return one-sided spectra for real input.
package spectral

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// SampleRate is the rate of the LBA recordings in Hz.
const SampleRate = 32000000

const (
	tukeyAlpha     = 0.5
	defaultSegment = 256
)

var ErrTooShort = errors.New("series too short")

// Spectrum is a power (or amplitude) value per frequency.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// Band is the frequency range of one recorded channel in MHz.
type Band struct {
	Low  float64
	High float64
}

// ChannelBands are the four 16MHz channels within a polarisation, stacked
// upwards from 6.3GHz.
var ChannelBands = []Band{
	{6300, 6316}, // f1
	{6316, 6332}, // f2
	{6642, 6658}, // f3
	{6658, 6674}, // f4
}

// Map rescales freqs in place so that they span the band: the lowest value
// maps to Low and the highest to High. A constant input maps to Low.
func (b Band) Map(freqs []float64) {
	if len(freqs) == 0 {
		return
	}
	lo, hi := freqs[0], freqs[0]
	for _, f := range freqs {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	span := hi - lo
	for i, f := range freqs {
		v := 0.0
		if span != 0 {
			v = (f - lo) / span
		}
		freqs[i] = v*(b.High-b.Low) + b.Low
	}
}

func (b Band) String() string {
	return fmt.Sprintf("%g-%gMHz", b.Low, b.High)
}

// tukey returns a Tukey window of length n. A periodic window is the
// symmetric window of length n+1 without its last point, as used for
// spectral estimation.
func tukey(n int, periodic bool) []float64 {
	m := n
	if periodic {
		m = n + 1
	}
	if m < 2 {
		w := make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w
	}
	return window.NewValues(window.Tukey{Alpha: tukeyAlpha}.Transform, m)[:n]
}

func sumSquares(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v * v
	}
	return s
}
