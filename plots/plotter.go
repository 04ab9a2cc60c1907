package plots

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/hb9tf/rfi/spectral"
	"github.com/hb9tf/rfi/timer"
	"github.com/hb9tf/rfi/waterfall"
)

const (
	freqLabel = "Frequency [MHz]"
	// groupSize is the number of channels merged into one spectrogram.
	groupSize = 2
)

// Plotter renders the diagnostics of each channel into OutDir/c<channel>.
type Plotter struct {
	OutDir     string
	SampleRate float64
	// Bands maps channel i to Bands[i % len(Bands)]. Without bands the raw
	// estimator frequencies are plotted.
	Bands []spectral.Band
	// Offset is the index of the first sample within the recording and
	// shifts the Lomb-Scargle time axis.
	Offset int
	// Image controls the size of the rendered spectrograms.
	Image waterfall.ImageOptions
}

// ChannelResult is what Channel computed for one series.
type ChannelResult struct {
	Channel     int
	Spectrogram *spectral.Spectrogram
	Statistics  *spectral.Statistics
}

func (p *Plotter) sampleRate() float64 {
	if p.SampleRate <= 0 {
		return spectral.SampleRate
	}
	return p.SampleRate
}

// freqs returns a copy of f in MHz, rescaled to the band of the channel.
func (p *Plotter) freqs(channel int, f []float64) []float64 {
	out := append([]float64(nil), f...)
	if len(p.Bands) == 0 {
		for i := range out {
			out[i] /= 1e6
		}
		return out
	}
	p.Bands[channel%len(p.Bands)].Map(out)
	return out
}

// spectrogramInHz relabels the frequency axis for the waterfall grid.
func (p *Plotter) spectrogramInHz(channel int, s *spectral.Spectrogram) *spectral.Spectrogram {
	freqs := p.freqs(channel, s.Freqs)
	for i := range freqs {
		freqs[i] *= 1e6
	}
	return &spectral.Spectrogram{Freqs: freqs, Times: s.Times, Power: s.Power}
}

func (p *Plotter) lineSpectrum(path, title, yLabel string, channel int, spec *spectral.Spectrum) error {
	return Line(path, title, freqLabel, yLabel, p.freqs(channel, spec.Freqs), spec.Power)
}

// Channel writes every diagnostic of series x. Sample statistics without the
// levels needed for the ratios are still written; the problem is logged.
func (p *Plotter) Channel(channel int, x []float64) (*ChannelResult, error) {
	defer timer.Track(fmt.Sprintf("channel %d diagnostics", channel))()

	dir := filepath.Join(p.OutDir, fmt.Sprintf("c%d", channel))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	fs := p.sampleRate()
	name := fmt.Sprintf("channel %d", channel)
	if len(p.Bands) > 0 {
		name = fmt.Sprintf("channel %d (%s)", channel, p.Bands[channel%len(p.Bands)])
	}

	sg, err := spectral.NewSpectrogram(x, fs)
	if err != nil {
		return nil, fmt.Errorf("%s spectrogram: %w", name, err)
	}
	if _, err := waterfall.WritePNG(filepath.Join(dir, "spectrogram.png"), p.spectrogramInHz(channel, sg), p.Image); err != nil {
		return nil, fmt.Errorf("%s spectrogram: %w", name, err)
	}

	spectra := []struct {
		file, title, yLabel string
		compute             func() (*spectral.Spectrum, error)
	}{
		{"periodogram.png", "Periodogram", "PSD [V**2/Hz]", func() (*spectral.Spectrum, error) { return spectral.Periodogram(x, fs) }},
		{"welch.png", "Welch", "PSD [V**2/Hz]", func() (*spectral.Spectrum, error) { return spectral.Welch(x, fs) }},
		{"fft.png", "FFT", "Magnitude", func() (*spectral.Spectrum, error) { return spectral.RFFT(x, fs) }},
		{"ifft.png", "FFT imaginary part", "Imaginary", func() (*spectral.Spectrum, error) { return spectral.FFTImag(x, fs) }},
		{"psd.png", "PSD", "PSD [V**2/Hz]", func() (*spectral.Spectrum, error) { return spectral.PSD(x, fs) }},
		{"asd.png", "ASD", "ASD [V/sqrt(Hz)]", func() (*spectral.Spectrum, error) {
			psd, err := spectral.PSD(x, fs)
			if err != nil {
				return nil, err
			}
			return spectral.ASD(psd), nil
		}},
		{"lombscargle.png", "Lomb-Scargle", "Normalized power", func() (*spectral.Spectrum, error) {
			return spectral.LombScargle(spectral.SampleTimes(p.Offset, len(x), fs), x, spectral.LombScargleFreqs())
		}},
	}
	for _, s := range spectra {
		spec, err := s.compute()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, s.title, err)
		}
		title := fmt.Sprintf("%s %s", s.title, name)
		if err := p.lineSpectrum(filepath.Join(dir, s.file), title, s.yLabel, channel, spec); err != nil {
			return nil, err
		}
		glog.V(2).Infof("%s: wrote %s", name, s.file)
	}

	stats, err := spectral.SampleStatistics(x)
	switch {
	case errors.Is(err, spectral.ErrMissingLevels):
		glog.Warningf("%s sample statistics: %s", name, err)
	case err != nil:
		return nil, fmt.Errorf("%s sample statistics: %w", name, err)
	}
	if err := writeJSON(filepath.Join(dir, "sample_statistics.json"), stats); err != nil {
		return nil, err
	}
	if err := Histogram(filepath.Join(dir, "sample_statistics_histogram.png"), fmt.Sprintf("Sample levels %s", name), stats); err != nil {
		return nil, err
	}

	return &ChannelResult{Channel: channel, Spectrogram: sg, Statistics: stats}, nil
}

// Group writes the merged spectrogram of consecutive channels, once as is
// and once with every channel normalised on its own.
func (p *Plotter) Group(group int, results []*ChannelResult) error {
	if len(results) == 0 {
		return nil
	}
	specs := make([]*spectral.Spectrogram, len(results))
	for i, r := range results {
		specs[i] = p.spectrogramInHz(r.Channel, r.Spectrogram)
	}
	for _, normalise := range []bool{false, true} {
		merged, err := spectral.Merge(specs, normalise)
		if err != nil {
			return fmt.Errorf("group %d: %w", group, err)
		}
		file := fmt.Sprintf("spectrogram_group%d_merged.png", group)
		if normalise {
			file = fmt.Sprintf("spectrogram_group%d_merged_normalised.png", group)
		}
		if _, err := waterfall.WritePNG(filepath.Join(p.OutDir, file), merged, p.Image); err != nil {
			return fmt.Errorf("group %d: %w", group, err)
		}
	}
	return nil
}

// Run renders every channel and then the merged spectrogram of each group
// of two consecutive channels.
func (p *Plotter) Run(channels [][]float64) ([]*ChannelResult, error) {
	results := make([]*ChannelResult, 0, len(channels))
	for i, x := range channels {
		r, err := p.Channel(i, x)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	for g := 0; g*groupSize < len(results); g++ {
		end := min((g+1)*groupSize, len(results))
		if err := p.Group(g, results[g*groupSize:end]); err != nil {
			return nil, err
		}
	}
	glog.Infof("Wrote diagnostics of %d channels to %s", len(results), p.OutDir)
	return results, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
