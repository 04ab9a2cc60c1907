package waterfall

import (
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/rfi/spectral"
)

func testSpectrogram() *spectral.Spectrogram {
	s := &spectral.Spectrogram{
		Freqs: []float64{0, 1000, 2000, 3000},
		Times: []float64{0, 0.5, 1},
	}
	for k := range s.Freqs {
		row := make([]float64, len(s.Times))
		for t := range row {
			row[t] = math.Pow(10, float64(k+t))
		}
		s.Power = append(s.Power, row)
	}
	return s
}

func TestGetColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, GetColor(0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, GetColor(math.MaxUint16))
	mid := GetColor(math.MaxUint16 / 2)
	assert.Equal(t, uint8(255), mid.A)
	assert.NotEqual(t, GetColor(0), mid)
}

func TestGetReadableFreq(t *testing.T) {
	tests := []struct {
		freq int64
		want string
	}{
		{freq: 999, want: "999.00 Hz"},
		{freq: 1000, want: "1.00 kHz"},
		{freq: 6308000000, want: "6.31 GHz"},
		{freq: -16000000, want: "-16.00 MHz"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, GetReadableFreq(tc.freq))
	}
}

func TestFindGridStepSize(t *testing.T) {
	assert.Equal(t, 125, findGridStepSize(1000, true))
	assert.Equal(t, 31, findGridStepSize(1000, false))
	assert.Equal(t, 50, findGridStepSize(50, true))
}

func TestRender(t *testing.T) {
	res, err := Render(testSpectrogram(), ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Image.Bounds().Dx())
	assert.Equal(t, 3, res.Image.Bounds().Dy())
	assert.InDelta(t, 0, res.Meta.MinDB, 1e-9)
	assert.InDelta(t, 50, res.Meta.MaxDB, 1e-9)
	// Weakest bin is top left, strongest bottom right.
	assert.Equal(t, colors[0], res.Image.At(0, 0))
	assert.Equal(t, colors[len(colors)-1], res.Image.At(3, 2))
}

func TestRenderBuckets(t *testing.T) {
	res, err := Render(testSpectrogram(), ImageOptions{Width: 2, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Meta.ImageWidth)
	assert.Equal(t, 3, res.Meta.ImageHeight)
	assert.InDelta(t, 1500, res.Meta.FreqPerPixel, 1e-9)
}

func TestRenderGrid(t *testing.T) {
	res, err := Render(testSpectrogram(), ImageOptions{AddGrid: true})
	require.NoError(t, err)
	assert.Equal(t, 4+gridMarginLeft, res.Image.Bounds().Dx())
	assert.Equal(t, 3+gridMarginTop, res.Image.Bounds().Dy())
}

func TestRenderEmpty(t *testing.T) {
	_, err := Render(&spectral.Spectrogram{}, ImageOptions{})
	assert.Error(t, err)
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrogram.png")
	_, err := WritePNG(path, testSpectrogram(), ImageOptions{AddGrid: true})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4+gridMarginLeft, img.Bounds().Dx())
}
