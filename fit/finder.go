package fit

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/sim"
	"github.com/milosgajdos/go-trackfit/track"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultGate is the default association gate in standard deviations
	DefaultGate = 3.0
	// DefaultMinHits is the default minimum number of hits of a track candidate
	DefaultMinHits = 3
	// DefaultSeedVar is the default variance of seeded candidate parameters
	DefaultSeedVar = 10.0
)

// Candidate is a straight track candidate built from hits on detector planes.
type Candidate struct {
	run     *kf.Run
	hits    []detector.Hit
	surface trackfit.Surface
}

// Run returns candidate filter run.
func (c *Candidate) Run() *kf.Run {
	return c.run
}

// Hits returns hits assigned to the candidate in the order they were assigned.
func (c *Candidate) Hits() []detector.Hit {
	return append([]detector.Hit(nil), c.hits...)
}

// Line returns the line fitted to candidate hits.
func (c *Candidate) Line() (*track.Line, error) {
	x := c.run.State().Val()
	return track.NewLineAt(c.surface, x.AtVec(0), x.AtVec(1))
}

// Point is a fitted track position.
type Point struct {
	X, Y float64
}

// Path is a sequence of fitted track positions.
type Path []Point

// Len returns number of points.
func (p Path) Len() int {
	return len(p)
}

// XY returns coordinates of the i-th point.
func (p Path) XY(i int) (x, y float64) {
	return p[i].X, p[i].Y
}

// FinderOption configures Finder.
type FinderOption func(*Finder)

// WithGate sets the number of standard deviations within which a hit is associated with a candidate.
func WithGate(g float64) FinderOption {
	return func(f *Finder) {
		f.gate = g
	}
}

// WithMinHits sets the minimum number of hits a candidate must collect to be kept.
func WithMinHits(n int) FinderOption {
	return func(f *Finder) {
		f.minHits = n
	}
}

// WithSeedVar sets the variance of seeded candidate parameters.
func WithSeedVar(v float64) FinderOption {
	return func(f *Finder) {
		f.seedVar = v
	}
}

// WithScattering sets slope variance per unit path length added between planes.
func WithScattering(q float64) FinderOption {
	return func(f *Finder) {
		f.scatter = q
	}
}

// WithFinderFilter sets the filter candidates are fitted with.
func WithFinderFilter(k kalman.Filter) FinderOption {
	return func(f *Finder) {
		f.filter = k
	}
}

// WithFinderLogger sets Finder logger.
func WithFinderLogger(l *slog.Logger) FinderOption {
	return func(f *Finder) {
		f.logger = l
	}
}

// Finder finds straight tracks among hits recorded by a detector of planes.
// It traverses the detector backwards, starting far from the vertex, seeds a
// candidate for every hit on the first plane and for every hit no candidate has
// claimed, and assigns each candidate the nearest hit within the gate.
type Finder struct {
	det     *detector.Detector
	filter  kalman.Filter
	gate    float64
	minHits int
	seedVar float64
	scatter float64
	logger  *slog.Logger
}

// NewFinder creates new Finder of tracks in det.
// It returns error if det surfaces are not planes or the options are invalid.
func NewFinder(det *detector.Detector, opts ...FinderOption) (*Finder, error) {
	if det == nil {
		return nil, fmt.Errorf("invalid detector: nil")
	}

	for i, s := range det.Surfaces(trackfit.Forward) {
		if _, ok := s.(*detector.Plane); !ok {
			return nil, fmt.Errorf("unsupported surface %d: %v", i, s)
		}
	}

	f := &Finder{
		det:     det,
		filter:  kf.New(),
		gate:    DefaultGate,
		minHits: DefaultMinHits,
		seedVar: DefaultSeedVar,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.gate <= 0 || f.seedVar <= 0 || f.scatter < 0 {
		return nil, fmt.Errorf("invalid finder options: gate %g, seed variance %g, scattering %g", f.gate, f.seedVar, f.scatter)
	}

	return f, nil
}

// Find returns track candidates with at least the minimum number of hits.
func (f *Finder) Find() ([]*Candidate, error) {
	var cands []*Candidate

	first := true
	for i, s := range f.det.Surfaces(trackfit.Backward) {
		hits := f.det.Hits(i)

		if !first {
			for _, c := range cands {
				var err error
				if hits, err = f.step(c, i, s, hits); err != nil {
					return nil, err
				}
			}
		}
		first = false

		for _, h := range hits {
			c, err := f.seed(i, s, h)
			if err != nil {
				return nil, err
			}
			cands = append(cands, c)
		}
		f.logger.Debug("surface done", "surface", i, "candidates", len(cands), "seeded", len(hits))
	}

	var out []*Candidate
	for _, c := range cands {
		if err := c.run.Close(); err != nil {
			return nil, err
		}
		if len(c.hits) >= f.minHits {
			out = append(out, c)
		}
	}
	f.logger.Info("tracks found", "candidates", len(cands), "tracks", len(out))

	return out, nil
}

// Propagate returns positions of the line fitted to candidate c at every detector
// plane in detector order.
func (f *Finder) Propagate(c *Candidate) (Path, error) {
	l, err := c.Line()
	if err != nil {
		return nil, err
	}

	pts := make(Path, 0, f.det.Len())
	for _, s := range f.det.Surfaces(trackfit.Forward) {
		p := s.(*detector.Plane)
		nx, ny := p.Normal()
		// plane crossing of an unbounded copy of the plane
		free, err := detector.NewPlane(nx, ny, p.Offset(), 0)
		if err != nil {
			return nil, err
		}
		next, _, err := l.Propagate(free, trackfit.Forward)
		if err != nil {
			return nil, err
		}
		x, y := next.Position()
		pts = append(pts, Point{X: x, Y: y})
	}

	return pts, nil
}

// seed creates a candidate from hit h on surface s pointing to the origin.
func (f *Finder) seed(i int, s trackfit.Surface, h detector.Hit) (*Candidate, error) {
	u := h.Measurement()
	x, y := s.Global(u)
	slope := 0.0
	if x != 0 {
		slope = y / x
	}

	cov := mat.NewSymDense(2, []float64{f.seedVar, 0, 0, f.seedVar})
	run, err := kf.NewRun(f.filter, sim.NewInitCond(mat.NewVecDense(2, []float64{u, slope}), cov), trackfit.Backward)
	if err != nil {
		return nil, err
	}

	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	if _, err := run.Predict(i, kalman.Transport{F: eye}); err != nil {
		return nil, err
	}

	m, err := measurement(s, 2, h, u)
	if err != nil {
		return nil, err
	}

	if _, err := run.Update(m); err != nil {
		return nil, err
	}

	return &Candidate{
		run:     run,
		hits:    []detector.Hit{h},
		surface: s,
	}, nil
}

// step moves candidate c to surface s and assigns it the nearest hit within the gate.
// It returns the hits left unassigned.
func (f *Finder) step(c *Candidate, i int, s trackfit.Surface, hits []detector.Hit) ([]detector.Hit, error) {
	x := c.run.State().Val()
	ref, err := track.NewLineAt(c.surface, x.AtVec(0), x.AtVec(1))
	if err != nil {
		return nil, err
	}

	// candidates may leave the detector so propagate to an unbounded copy of the plane
	p := s.(*detector.Plane)
	nx, ny := p.Normal()
	free, err := detector.NewPlane(nx, ny, p.Offset(), 0)
	if err != nil {
		return nil, err
	}

	tr, _, err := transport(ref.WithScattering(f.scatter), free, trackfit.Backward)
	if err != nil {
		return nil, &SurfaceError{Surface: i, Direction: trackfit.Backward, Err: err}
	}

	pred, err := c.run.Predict(i, tr)
	if err != nil {
		return nil, err
	}
	c.surface = s

	best, dist := -1, math.Inf(1)
	for j, h := range hits {
		if d := math.Abs(h.Measurement() - pred.Val().AtVec(0)); d < dist {
			best, dist = j, d
		}
	}

	if best < 0 {
		return hits, c.run.Skip()
	}

	m, err := measurement(s, 2, hits[best], pred.Val().AtVec(0))
	if err != nil {
		return nil, err
	}

	r, cov, err := kf.Residual(pred, m)
	if err != nil {
		return nil, err
	}

	if v := r.AtVec(0); v*v > f.gate*f.gate*cov.At(0, 0) {
		return hits, c.run.Skip()
	}

	if _, err := c.run.Update(m); err != nil {
		return nil, err
	}
	c.hits = append(c.hits, hits[best])

	return append(hits[:best:best], hits[best+1:]...), nil
}
