package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrackPlot creates new plot of a simulated event from the three data sources:
// hits:   recorded hit positions
// truth:  paths of the generated tracks
// fitted: paths of the fitted tracks
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * hits are nil
// * any of the paths has less than 2 points
// * gonum plot fails to be created
func NewTrackPlot(hits plotter.XYer, truth, fitted []plotter.XYer) (*plot.Plot, error) {
	if hits == nil {
		return nil, fmt.Errorf("invalid hits supplied")
	}

	p := plot.New()

	p.Title.Text = "Tracks"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a scatter plotter for hits
	hitScatter, err := plotter.NewScatter(hits)
	if err != nil {
		return nil, err
	}
	hitScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	hitScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(hitScatter)
	p.Legend.Add("hits", hitScatter)

	for i, path := range truth {
		if path.Len() < 2 {
			return nil, fmt.Errorf("invalid track %d path length: %d", i, path.Len())
		}
		l, err := plotter.NewLine(path)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		if i == 0 {
			p.Legend.Add("track", l)
		}
	}

	for i, path := range fitted {
		if path.Len() < 2 {
			return nil, fmt.Errorf("invalid fit %d path length: %d", i, path.Len())
		}
		l, s, err := plotter.NewLinePoints(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create fit %d line: %v", i, err)
		}
		l.LineStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
		s.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(l, s)
		if i == 0 {
			p.Legend.Add("fit", l, s)
		}
	}

	setRange(p, hits, truth, fitted)

	return p, nil
}

// setRange pads the plot axes around all plotted points.
func setRange(p *plot.Plot, hits plotter.XYer, truth, fitted []plotter.XYer) {
	var xs, ys []float64
	collect := func(d plotter.XYer) {
		for i := range d.Len() {
			x, y := d.XY(i)
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}

	collect(hits)
	for _, d := range append(append([]plotter.XYer(nil), truth...), fitted...) {
		collect(d)
	}

	if len(xs) == 0 {
		return
	}

	pad := func(lo, hi float64) (float64, float64) {
		d := 0.05 * (hi - lo)
		if d == 0 {
			d = 1
		}
		return lo - d, hi + d
	}

	p.X.Min, p.X.Max = pad(floats.Min(xs), floats.Max(xs))
	p.Y.Min, p.Y.Max = pad(floats.Min(ys), floats.Max(ys))
}
