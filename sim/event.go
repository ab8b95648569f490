package sim

import (
	"fmt"
	"iter"
	"slices"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"gonum.org/v1/plot/plotter"
)

// Generator generates tracks
type Generator interface {
	// Tracks returns a sequence of tracks
	Tracks() iter.Seq[trackfit.Track]
}

// Event is a simulated detector event
type Event struct {
	// Tracks are the generated tracks
	Tracks []trackfit.Track
	// Detector holds the recorded hits
	Detector *detector.Detector
}

// Simulate clears hits recorded by det, records the tracks generated by g and returns the event.
func Simulate(det *detector.Detector, g Generator) (*Event, error) {
	if det == nil || g == nil {
		return nil, fmt.Errorf("invalid simulation input: detector %v, generator %v", det, g)
	}

	var tracks []trackfit.Track
	for t := range g.Tracks() {
		tracks = append(tracks, t)
	}

	det.Clear()
	if err := det.Record(slices.Values(tracks)); err != nil {
		return nil, err
	}

	return &Event{
		Tracks:   tracks,
		Detector: det,
	}, nil
}

// Hits returns positions of all hits recorded in the event.
func (e *Event) Hits() plotter.XYs {
	var pts plotter.XYs
	for i, s := range e.Detector.Surfaces(trackfit.Forward) {
		for _, h := range e.Detector.Hits(i) {
			x, y := s.Global(h.Measurement())
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
	}

	return pts
}

// TrackPath returns positions of track t at its reference surface and at every
// surface of det it crosses, in detector order.
func TrackPath(det *detector.Detector, t trackfit.Track) plotter.XYs {
	x, y := t.Position()
	pts := plotter.XYs{{X: x, Y: y}}

	for _, s := range det.Surfaces(trackfit.Forward) {
		m, err := s.Intersect(t)
		if err != nil {
			continue
		}
		x, y := s.Global(m.AtVec(0))
		pts = append(pts, plotter.XY{X: x, Y: y})
	}

	return pts
}

// EstimatePath returns positions of estimates est of track parameters at the surfaces of det.
// The i-th estimate must be referenced to the i-th surface.
func EstimatePath(det *detector.Detector, est []trackfit.Estimate) (plotter.XYs, error) {
	if len(est) != det.Len() {
		return nil, fmt.Errorf("invalid number of estimates: %d != %d", len(est), det.Len())
	}

	pts := make(plotter.XYs, len(est))
	for i, s := range det.Surfaces(trackfit.Forward) {
		pts[i].X, pts[i].Y = s.Global(est[i].Val().AtVec(0))
	}

	return pts, nil
}
