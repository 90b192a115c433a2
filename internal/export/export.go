// Package export renders trajectory samples as CSV tables and PNG charts.
package export

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/star/ballistics/internal/ballistics"
)

// Header is the CSV column row written by WriteCSV.
var Header = []string{
	"Range (yrds)",
	"Raw Range (yrds)",
	"Path (in)",
	"Path (MOA)",
	"Time (s)",
	"Wind (in)",
	"Wind (MOA)",
	"Energy (ft-lbs)",
	"Velocity (ft/s)",
	"Velocity X (ft/s)",
	"Velocity Y (ft/s)",
}

// Chart dimensions for WritePNG.
const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

// WriteCSV writes a header row and one row per sample.
func WriteCSV(w io.Writer, samples []ballistics.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range samples {
		err := cw.Write([]string{
			fmt.Sprintf("%d", s.Yard),
			fmt.Sprintf("%0.2f", s.Range),
			fmt.Sprintf("%0.2f", s.Path),
			fmt.Sprintf("%0.2f", s.MOA),
			fmt.Sprintf("%0.3f", s.Time),
			fmt.Sprintf("%0.2f", s.Windage),
			fmt.Sprintf("%0.2f", s.WindageMOA),
			fmt.Sprintf("%0.0f", s.Energy),
			fmt.Sprintf("%0.1f", s.Velocity),
			fmt.Sprintf("%0.1f", s.Vx),
			fmt.Sprintf("%0.1f", s.Vy),
		})
		if err != nil {
			return fmt.Errorf("writing csv row at %d yd: %w", s.Yard, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WritePNG draws path and windage against range and writes the chart as PNG.
func WritePNG(w io.Writer, samples []ballistics.Sample, title string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	path := make(plotter.XYs, len(samples))
	wind := make(plotter.XYs, len(samples))
	apex := samples[0]
	for i, s := range samples {
		path[i].X, path[i].Y = s.Range, s.Path
		wind[i].X, wind[i].Y = s.Range, s.Windage
		if s.Path > apex.Path {
			apex = s
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Range (yd)"
	p.Y.Label.Text = "Inches"
	p.Add(plotter.NewGrid())

	pathLine, err := plotter.NewLine(path)
	if err != nil {
		return fmt.Errorf("path line: %w", err)
	}
	pathLine.LineStyle.Width = vg.Points(1.5)
	pathLine.LineStyle.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

	windLine, err := plotter.NewLine(wind)
	if err != nil {
		return fmt.Errorf("windage line: %w", err)
	}
	windLine.LineStyle.Width = vg.Points(1)
	windLine.LineStyle.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	windLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(pathLine, windLine)
	p.Legend.Add(fmt.Sprintf("Path (apex %.2f in @ %d yd)", apex.Path, apex.Yard), pathLine)
	p.Legend.Add("Windage", windLine)
	p.Legend.Top = true

	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	return nil
}
