package spectral

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// RFFT is the magnitude of the real Fourier transform of the Tukey windowed
// series.
func RFFT(x []float64, fs float64) (*Spectrum, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(x))
	}
	win := tukey(len(x), true)
	seq := make([]float64, len(x))
	for i, v := range x {
		seq[i] = v * win[i]
	}
	fft := fourier.NewFFT(len(x))
	coeffs := fft.Coefficients(nil, seq)

	s := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for k, c := range coeffs {
		s.Freqs[k] = fft.Freq(k) * fs
		s.Power[k] = cmplx.Abs(c)
	}
	return s, nil
}

// FFTImag is the imaginary part of the complex Fourier transform of the
// symmetric Tukey windowed series, ordered from the most negative to the most
// positive frequency.
func FFTImag(x []float64, fs float64) (*Spectrum, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(x))
	}
	win := tukey(len(x), false)
	seq := make([]complex128, len(x))
	for i, v := range x {
		seq[i] = complex(v*win[i], 0)
	}
	fft := fourier.NewCmplxFFT(len(x))
	coeffs := fft.Coefficients(nil, seq)

	s := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i := range coeffs {
		k := fft.ShiftIdx(i)
		s.Freqs[i] = fft.Freq(k) * fs
		s.Power[i] = imag(coeffs[k])
	}
	return s, nil
}
