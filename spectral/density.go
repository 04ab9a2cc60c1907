package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// estimator describes how a series is cut into windowed segments.
type estimator struct {
	nperseg  int
	noverlap int
	detrend  bool
	// pad zero-pads series shorter than nperseg instead of shrinking the
	// segment.
	pad bool
}

// segments computes the one-sided power spectral density of every segment
// of x. It returns the frequency of each bin, the density per segment and
// bin, and the center of each segment in seconds.
func (e estimator) segments(x []float64, fs float64) (freqs []float64, psd [][]float64, times []float64, err error) {
	nperseg := e.nperseg
	if len(x) < nperseg {
		if e.pad {
			padded := make([]float64, nperseg)
			copy(padded, x)
			x = padded
		} else {
			nperseg = len(x)
		}
	}
	if nperseg < 2 {
		return nil, nil, nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(x))
	}
	noverlap := min(e.noverlap, nperseg-1)
	step := nperseg - noverlap

	win := tukey(nperseg, true)
	energy := sumSquares(win)
	if energy == 0 {
		return nil, nil, nil, fmt.Errorf("%w: window of %d samples has no energy", ErrTooShort, nperseg)
	}
	scale := 1 / (fs * energy)

	fft := fourier.NewFFT(nperseg)
	nbins := nperseg/2 + 1
	freqs = make([]float64, nbins)
	for k := range freqs {
		freqs[k] = fft.Freq(k) * fs
	}

	seg := make([]float64, nperseg)
	coeffs := make([]complex128, nbins)
	for start := 0; start+nperseg <= len(x); start += step {
		copy(seg, x[start:start+nperseg])
		if e.detrend {
			mean := stat.Mean(seg, nil)
			for i := range seg {
				seg[i] -= mean
			}
		}
		for i := range seg {
			seg[i] *= win[i]
		}
		fft.Coefficients(coeffs, seg)

		p := make([]float64, nbins)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			p[k] = a * a * scale
			// Fold the negative frequencies onto the positive ones. DC and,
			// for even lengths, Nyquist have no mirror.
			if k != 0 && !(nperseg%2 == 0 && k == nbins-1) {
				p[k] *= 2
			}
		}
		psd = append(psd, p)
		times = append(times, (float64(start)+float64(nperseg)/2)/fs)
	}
	return freqs, psd, times, nil
}

// average folds per-segment densities into their mean.
func average(freqs []float64, psd [][]float64) *Spectrum {
	power := make([]float64, len(freqs))
	for _, p := range psd {
		for k, v := range p {
			power[k] += v
		}
	}
	for k := range power {
		power[k] /= float64(len(psd))
	}
	return &Spectrum{Freqs: freqs, Power: power}
}

// Periodogram estimates the power spectral density from the whole series as
// a single windowed segment.
func Periodogram(x []float64, fs float64) (*Spectrum, error) {
	freqs, psd, _, err := estimator{nperseg: len(x), detrend: true}.segments(x, fs)
	if err != nil {
		return nil, err
	}
	return average(freqs, psd), nil
}

// Welch estimates the power spectral density by averaging 256 sample
// segments overlapping by half.
func Welch(x []float64, fs float64) (*Spectrum, error) {
	freqs, psd, _, err := estimator{nperseg: defaultSegment, noverlap: defaultSegment / 2, detrend: true}.segments(x, fs)
	if err != nil {
		return nil, err
	}
	return average(freqs, psd), nil
}

// PSD estimates the power spectral density by averaging adjacent 256 sample
// segments without detrending. Shorter series are zero padded.
func PSD(x []float64, fs float64) (*Spectrum, error) {
	freqs, psd, _, err := estimator{nperseg: defaultSegment, pad: true}.segments(x, fs)
	if err != nil {
		return nil, err
	}
	return average(freqs, psd), nil
}

// ASD is the amplitude spectral density, the square root of a PSD.
func ASD(psd *Spectrum) *Spectrum {
	amp := make([]float64, len(psd.Power))
	for i, v := range psd.Power {
		amp[i] = math.Sqrt(v)
	}
	freqs := make([]float64, len(psd.Freqs))
	copy(freqs, psd.Freqs)
	return &Spectrum{Freqs: freqs, Power: amp}
}
