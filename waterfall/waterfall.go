// Package waterfall renders spectrograms as heatmap images with frequency on
// the X axis and time running down the Y axis.
package waterfall

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/golang/glog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hb9tf/rfi/spectral"
)

var (
	// Colors defining the gradient in the heatmap. The higher the index, the warmer.
	colors = []color.RGBA{
		{0, 0, 0, 255},       // black
		{0, 0, 255, 255},     // blue
		{0, 255, 255, 255},   // cyan
		{0, 255, 0, 255},     // green
		{255, 255, 0, 255},   // yellow
		{255, 0, 0, 255},     // red
		{255, 255, 255, 255}, // white
	}

	gridColor           = color.RGBA{0, 0, 0, 255}
	gridBackgroundColor = color.RGBA{255, 255, 255, 255}

	expSuffixLookup = map[int]string{
		0: "Hz",  // 10^0
		1: "kHz", // 10^3
		2: "MHz", // 10^6
		3: "GHz", // 10^9
		4: "THz", // 10^12
	}
)

const (
	gridMarginTop  = 20  // pixels
	gridMarginLeft = 80  // pixels
	gridTickLen    = 10  // pixel
	gridMinStepX   = 100 // pixels
	gridMinStepY   = 20  // pixels
	// floorDB is used for bins without any power so the logarithm stays finite.
	floorDB = -300.0
)

// GetColor determines the color of a pixel based on a color gradient and a pixel "level".
// http://www.andrewnoske.com/wiki/Code_-_heatmaps_and_color_gradients
func GetColor(lvl uint16) color.RGBA {
	pos := float64(lvl) / math.MaxUint16 * float64(len(colors)-1)
	i := int(pos)
	if i >= len(colors)-1 {
		return colors[len(colors)-1]
	}
	fract := pos - float64(i)
	lo, hi := colors[i], colors[i+1]
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*fract))
	}
	return color.RGBA{mix(lo.R, hi.R), mix(lo.G, hi.G), mix(lo.B, hi.B), mix(lo.A, hi.A)}
}

func GetReadableFreq(freq int64) string {
	exp := 0
	for f := math.Abs(float64(freq)); f >= 1000; f = f / 1000.0 {
		exp += 1
	}
	suffix, ok := expSuffixLookup[exp]
	if !ok {
		return fmt.Sprintf("%d Hz", freq)
	}
	return fmt.Sprintf("%.2f %s", float64(freq)/math.Pow(1000, float64(exp)), suffix)
}

func drawTick(canvas *image.RGBA, start image.Point, length int, horizontal bool) {
	for i := 0; i <= length; i++ {
		if horizontal {
			canvas.SetRGBA(start.X+i, start.Y, gridColor)
		} else {
			canvas.SetRGBA(start.X, start.Y+i, gridColor)
		}
	}
}

func findGridStepSize(step int, horizontal bool) int {
	gridMinStep := gridMinStepY
	if horizontal {
		gridMinStep = gridMinStepX
	}
	for step > gridMinStep {
		n := step / 2
		if n < gridMinStep {
			return step
		}
		step = n
	}
	return step
}

func drawLabel(canvas *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(gridColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}

// DrawGrid adds a margin with frequency ticks along the top and time offset
// ticks along the left of the source image.
func DrawGrid(source *image.RGBA, lowFreq, highFreq int64, duration time.Duration) *image.RGBA {
	b := source.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx()+gridMarginLeft, b.Dy()+gridMarginTop))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{gridBackgroundColor}, image.Point{}, draw.Src)
	r := canvas.Bounds()
	r.Min.X += gridMarginLeft
	r.Min.Y += gridMarginTop
	draw.Draw(canvas, r, source, b.Min, draw.Src)

	// Draw X ticks.
	xStep := findGridStepSize(b.Dx(), true)
	for i := 0; i < b.Dx(); i += xStep {
		drawTick(canvas, image.Point{gridMarginLeft + i, gridMarginTop - gridTickLen}, gridTickLen, false)
		freq := lowFreq + (int64(i)*(highFreq-lowFreq))/int64(b.Dx())
		drawLabel(canvas, gridMarginLeft+i+5, gridMarginTop-2, GetReadableFreq(freq))
	}

	// Draw Y ticks.
	yStep := findGridStepSize(b.Dy(), false)
	for i := 0; i < b.Dy(); i += yStep {
		drawTick(canvas, image.Point{gridMarginLeft - gridTickLen, gridMarginTop + i}, gridTickLen, true)
		offset := time.Duration(int64(i) * int64(duration) / int64(b.Dy()))
		drawLabel(canvas, 5, gridMarginTop+i+10, offset.String())
	}

	return canvas
}

// ImageOptions controls the rendered size. A zero Width or Height uses one
// pixel per frequency bin or time slice respectively.
type ImageOptions struct {
	Height int
	Width  int

	AddGrid bool
}

type RenderMetadata struct {
	ImageHeight  int
	ImageWidth   int
	LowFreq      float64
	HighFreq     float64
	MinDB        float64
	MaxDB        float64
	FreqPerPixel float64
	SecPerPixel  float64
}

type RenderResult struct {
	Image image.Image
	Meta  *RenderMetadata
}

func decibel(p float64) float64 {
	if p <= 0 {
		return floorDB
	}
	return math.Max(10*math.Log10(p), floorDB)
}

// Render draws the spectrogram in decibels. When the requested size is
// smaller than the spectrogram, neighbouring cells are bucketed and the
// strongest value of each bucket is drawn.
func Render(s *spectral.Spectrogram, opts ImageOptions) (*RenderResult, error) {
	if len(s.Freqs) == 0 || len(s.Times) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	width, height := opts.Width, opts.Height
	switch {
	case width == 0:
		width = len(s.Freqs)
	case width > len(s.Freqs):
		glog.Warningf("image width %d is more than the %d frequency bins available, reducing", width, len(s.Freqs))
		width = len(s.Freqs)
	}
	switch {
	case height == 0:
		height = len(s.Times)
	case height > len(s.Times):
		glog.Warningf("image height %d is more than the %d time slices available, reducing", height, len(s.Times))
		height = len(s.Times)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	img := make([][]float64, height)
	for y := range img {
		img[y] = make([]float64, width)
		for x := range img[y] {
			img[y][x] = math.Inf(-1)
		}
	}
	minDB, maxDB := math.Inf(1), math.Inf(-1)
	for k, row := range s.Power {
		x := k * width / len(s.Freqs)
		for t, p := range row {
			y := t * height / len(s.Times)
			db := decibel(p)
			img[y][x] = math.Max(img[y][x], db)
			minDB = math.Min(minDB, db)
			maxDB = math.Max(maxDB, db)
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	dbRange := maxDB - minDB
	for y, row := range img {
		for x, db := range row {
			lvl := uint16(0)
			if dbRange > 0 {
				lvl = uint16((db - minDB) * math.MaxUint16 / dbRange)
			}
			canvas.SetRGBA(x, y, GetColor(lvl))
		}
	}

	lowFreq, highFreq := s.Freqs[0], s.Freqs[len(s.Freqs)-1]
	duration := s.Times[len(s.Times)-1] - s.Times[0]
	if opts.AddGrid {
		canvas = DrawGrid(canvas, int64(lowFreq), int64(highFreq), time.Duration(duration*float64(time.Second)))
	}

	return &RenderResult{
		Image: canvas,
		Meta: &RenderMetadata{
			ImageHeight:  height,
			ImageWidth:   width,
			LowFreq:      lowFreq,
			HighFreq:     highFreq,
			MinDB:        minDB,
			MaxDB:        maxDB,
			FreqPerPixel: (highFreq - lowFreq) / float64(width),
			SecPerPixel:  duration / float64(height),
		},
	}, nil
}

// WritePNG renders the spectrogram and stores it at path.
func WritePNG(path string, s *spectral.Spectrogram, opts ImageOptions) (*RenderMetadata, error) {
	res, err := Render(s, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := png.Encode(f, res.Image); err != nil {
		f.Close()
		return nil, err
	}
	return res.Meta, f.Close()
}
