package detector

import (
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Periodic is implemented by shapes whose local coordinate wraps around.
type Periodic interface {
	// Period returns the length after which the local coordinate repeats
	Period() float64
}

// Unwrap returns local coordinate u of shape s shifted by whole periods to the value
// closest to ref. Coordinates of shapes which are not Periodic are returned unchanged.
func Unwrap(s trackfit.Shape, u, ref float64) float64 {
	p, ok := s.(Periodic)
	if !ok || p.Period() <= 0 {
		return u
	}

	return ref + math.Remainder(u-ref, p.Period())
}

// intersect propagates t to s and returns the local coordinate of the crossing.
func intersect(s trackfit.Surface, t trackfit.Track) (mat.Vector, error) {
	next, _, err := t.Propagate(s, trackfit.Forward)
	if err != nil {
		return nil, err
	}

	return mat.NewVecDense(1, []float64{next.Params().AtVec(0)}), nil
}

// project returns 1 x n matrix which selects the first state component.
func project(n int) (mat.Matrix, error) {
	if n <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "state dimension: %d", n)
	}

	h := mat.NewDense(1, n, nil)
	h.Set(0, 0, 1.0)

	return h, nil
}
