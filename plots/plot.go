// Package plots writes the per channel spectral diagnostics of a recording.
package plots

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hb9tf/rfi/spectral"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
	barWidth   = 20
)

// Line plots ys over xs with a grid and saves it to path. The file type is
// derived from the extension.
func Line(path, title, xLabel, yLabel string, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%s: %d x values for %d y values", title, len(xs), len(ys))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	p.Add(line)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("unable to save %s: %w", path, err)
	}
	return nil
}

// Histogram draws one bar per counted sample level.
func Histogram(path, title string, stats *spectral.Statistics) error {
	levels := stats.Levels()
	if len(levels) == 0 {
		return fmt.Errorf("%s: no samples", title)
	}
	values := make(plotter.Values, len(levels))
	names := make([]string, len(levels))
	for i, l := range levels {
		values[i] = float64(stats.Counts[l])
		names[i] = strconv.Itoa(l)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Sample level"
	p.Y.Label.Text = "Count"
	bars, err := plotter.NewBarChart(values, vg.Points(barWidth))
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("unable to save %s: %w", path, err)
	}
	return nil
}
