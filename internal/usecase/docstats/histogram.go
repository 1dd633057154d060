package docstats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram defaults.
const (
	DefaultBins         = 30
	DefaultHistogramPNG = "token_distribution.png"
)

// SaveHistogram draws the distribution of counts with the summary block in
// the legend and writes it to path. The format follows the file extension.
func SaveHistogram(path string, counts []int, bins int) error {
	if len(counts) == 0 {
		return errors.New("no token counts to plot")
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Distribution of Document Token Lengths"
	p.X.Label.Text = "Token Count"
	p.Y.Label.Text = "Number of Documents"
	p.Add(plotter.NewGrid(), h)
	p.Legend.Top = true
	for _, line := range Summarize(counts).Legend() {
		p.Legend.Add(line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
