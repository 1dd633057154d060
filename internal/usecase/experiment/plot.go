package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

const ellipseSamples = 500

// SaveChordPlot draws the optimized chords against the elliptic distribution
// of equal area. The format follows the file extension.
func SaveChordPlot(path string, o Outcome) error {
	if len(o.Stations) == 0 || len(o.Stations) != len(o.Chords) {
		return errors.New("no chord distribution to plot")
	}

	optimized := make(plotter.XYs, len(o.Stations))
	for i, y := range o.Stations {
		optimized[i] = plotter.XY{X: y, Y: o.Chords[i]}
	}
	ys := geometry.Linspace(o.Stations[0], o.Stations[len(o.Stations)-1], ellipseSamples)
	ellipse := make(plotter.XYs, len(ys))
	for i, c := range EllipticChords(ys, o.Area) {
		ellipse[i] = plotter.XY{X: ys[i], Y: c}
	}

	line, points, err := plotter.NewLinePoints(optimized)
	if err != nil {
		return fmt.Errorf("chord line: %w", err)
	}
	line.Color = plotutil.Color(0)
	points.Color = plotutil.Color(0)
	ref, err := plotter.NewLine(ellipse)
	if err != nil {
		return fmt.Errorf("ellipse line: %w", err)
	}
	ref.Color = plotutil.Color(1)
	ref.Dashes = plotutil.Dashes(1)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Chord distribution: %s", o.ID)
	p.X.Label.Text = "Span [m]"
	p.Y.Label.Text = "Chord [m]"
	p.Add(plotter.NewGrid(), ref, line, points)
	p.Legend.Top = true
	p.Legend.Add("Optimized (VLM)", line, points)
	p.Legend.Add("Elliptic Distribution", ref)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
