package track

import (
	"fmt"
	"iter"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/rnd"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LineGenerator generates straight tracks with normally distributed slope and intercept.
type LineGenerator struct {
	n    int
	mean []float64
	cov  *mat.SymDense
	seed uint64
}

// NewLineGenerator creates a generator of n lines whose (slope, intercept) are drawn
// from a normal distribution with the given mean and covariance.
func NewLineGenerator(n int, mean []float64, cov mat.Symmetric, seed uint64) (*LineGenerator, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid number of tracks: %d", n)
	}

	if len(mean) != 2 || cov == nil || cov.SymmetricDim() != 2 {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "line distribution mean %d", len(mean))
	}

	c := mat.NewSymDense(2, nil)
	c.CopySym(cov)

	var eig mat.EigenSym
	if ok := eig.Factorize(c, false); !ok {
		return nil, fmt.Errorf("line covariance factorization failed")
	}
	for _, v := range eig.Values(nil) {
		if v < 0 {
			return nil, fmt.Errorf("line covariance is not positive semi-definite")
		}
	}

	return &LineGenerator{
		n:    n,
		mean: append([]float64(nil), mean...),
		cov:  c,
		seed: seed,
	}, nil
}

// Tracks returns a sequence of generated lines.
// Every call restarts the sequence from the generator seed.
func (g *LineGenerator) Tracks() iter.Seq[trackfit.Track] {
	return func(yield func(trackfit.Track) bool) {
		rng := rand.New(rand.NewSource(g.seed))
		for range g.n {
			v, err := rnd.WithMeanCov(g.mean, g.cov, rng)
			if err != nil {
				return
			}
			if !yield(NewLine(v.AtVec(0), v.AtVec(1))) {
				return
			}
		}
	}
}

// HelixGenerator generates helices starting at a common vertex with uniformly distributed
// direction and curvature.
type HelixGenerator struct {
	n          int
	x, y       float64
	phi, kappa [2]float64
	seed       uint64
}

// NewHelixGenerator creates a generator of n helices starting at (x, y) with direction
// drawn from [phi[0], phi[1]) and curvature from [kappa[0], kappa[1]).
func NewHelixGenerator(n int, x, y float64, phi, kappa [2]float64, seed uint64) (*HelixGenerator, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid number of tracks: %d", n)
	}

	if phi[1] < phi[0] || kappa[1] < kappa[0] {
		return nil, fmt.Errorf("invalid helix ranges: phi %v kappa %v", phi, kappa)
	}

	return &HelixGenerator{
		n:     n,
		x:     x,
		y:     y,
		phi:   phi,
		kappa: kappa,
		seed:  seed,
	}, nil
}

// Tracks returns a sequence of generated helices.
// Every call restarts the sequence from the generator seed.
func (g *HelixGenerator) Tracks() iter.Seq[trackfit.Track] {
	return func(yield func(trackfit.Track) bool) {
		src := rand.NewSource(g.seed)
		phi := distuv.Uniform{Min: g.phi[0], Max: g.phi[1], Src: src}
		kappa := distuv.Uniform{Min: g.kappa[0], Max: g.kappa[1], Src: src}

		for range g.n {
			h, err := NewHelix(g.x, g.y, phi.Rand(), kappa.Rand())
			if err != nil {
				return
			}
			if !yield(h) {
				return
			}
		}
	}
}
