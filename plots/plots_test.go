package plots

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/rfi/spectral"
)

// levels returns a deterministic series of 2 bit sample levels.
func levels(n, seed int) []float64 {
	lvls := []float64{-3, -1, 1, 3}
	x := make([]float64, n)
	state := uint32(seed + 1)
	for i := range x {
		state = state*1664525 + 1013904223
		x[i] = lvls[state>>30]
	}
	return x
}

func TestLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.png")
	require.NoError(t, Line(path, "test", "x", "y", []float64{1, 2, 3}, []float64{3, 1, 2}))
	assert.FileExists(t, path)

	assert.Error(t, Line(path, "test", "x", "y", []float64{1, 2}, []float64{1}))
}

func TestHistogram(t *testing.T) {
	dir := t.TempDir()
	stats, err := spectral.SampleStatistics([]float64{-3, -1, -1, 1, 3, 3})
	require.NoError(t, err)
	path := filepath.Join(dir, "hist.png")
	require.NoError(t, Histogram(path, "levels", stats))
	assert.FileExists(t, path)

	assert.Error(t, Histogram(filepath.Join(dir, "empty.png"), "levels", &spectral.Statistics{}))
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	p := &Plotter{
		OutDir:     out,
		SampleRate: 1024,
		Bands:      spectral.ChannelBands,
	}
	results, err := p.Run([][]float64{levels(1024, 0), levels(1024, 1), levels(1024, 2)})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, c := range []string{"c0", "c1", "c2"} {
		for _, f := range []string{
			"spectrogram.png", "periodogram.png", "welch.png", "lombscargle.png",
			"fft.png", "ifft.png", "psd.png", "asd.png",
			"sample_statistics.json", "sample_statistics_histogram.png",
		} {
			assert.FileExists(t, filepath.Join(out, c, f))
		}
	}
	for _, f := range []string{
		"spectrogram_group0_merged.png", "spectrogram_group0_merged_normalised.png",
		"spectrogram_group1_merged.png", "spectrogram_group1_merged_normalised.png",
	} {
		assert.FileExists(t, filepath.Join(out, f))
	}

	data, err := os.ReadFile(filepath.Join(out, "c0", "sample_statistics.json"))
	require.NoError(t, err)
	var stats spectral.Statistics
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, []int{1024}, stats.Shape)
	assert.Equal(t, results[0].Statistics.Counts, stats.Counts)
}

func TestChannelMissingLevels(t *testing.T) {
	out := t.TempDir()
	x := make([]float64, 512)
	for i := range x {
		x[i] = -1
		if i%2 == 0 {
			x[i] = -3
		}
	}
	p := &Plotter{OutDir: out, SampleRate: 512}
	r, err := p.Channel(0, x)
	require.NoError(t, err)
	assert.Zero(t, r.Statistics.NegPosRatio)
	assert.FileExists(t, filepath.Join(out, "c0", "sample_statistics.json"))
}

func TestChannelTooShort(t *testing.T) {
	p := &Plotter{OutDir: t.TempDir()}
	_, err := p.Channel(0, levels(1, 0))
	assert.ErrorIs(t, err, spectral.ErrTooShort)
}
