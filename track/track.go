package track

import (
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

const (
	// tol is the path length tolerance when classifying crossings by direction
	tol = 1e-9
	// step is the finite difference step of numeric Jacobians
	step = 1e-6
)

// choose returns the crossing path length a track travelling in dir reaches first.
// Crossings in the direction of travel are preferred over the ones behind the track.
func choose(ss []float64, dir trackfit.Direction) (float64, int, bool) {
	if len(ss) == 0 {
		return 0, -1, false
	}

	sign := dir.Sign()
	best, ahead := -1, false
	for i, s := range ss {
		if math.IsNaN(s) {
			continue
		}
		isAhead := s*sign >= -tol
		switch {
		case best < 0:
		case isAhead && !ahead:
		case isAhead == ahead && math.Abs(s) < math.Abs(ss[best]):
		default:
			continue
		}
		best, ahead = i, isAhead
	}

	if best < 0 {
		return 0, -1, false
	}

	return ss[best], best, true
}

// nearest returns index of the path length closest to s.
func nearest(ss []float64, s float64) int {
	best := -1
	for i := range ss {
		if best < 0 || math.Abs(ss[i]-s) < math.Abs(ss[best]-s) {
			best = i
		}
	}
	return best
}

// jacobian numerically differentiates f at x with central differences.
func jacobian(f func([]float64) ([]float64, error), x []float64) (*mat.Dense, error) {
	n := len(x)
	jac := mat.NewDense(n, n, nil)

	var ferr error
	fd.Jacobian(jac, func(y, x []float64) {
		out, err := f(x)
		if err != nil {
			if ferr == nil {
				ferr = err
			}
			return
		}
		copy(y, out)
	}, x, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    step,
	})

	if ferr != nil {
		return nil, errors.Wrapf(ferr, "jacobian")
	}

	return jac, nil
}

// scattering returns process noise of a random walk of the direction parameter
// with variance q per unit path length over path length s.
// The direction parameter is the component at index dir of an n dimensional state,
// the component at index 0 is the position.
func scattering(q, s float64, n, dir int) *mat.SymDense {
	cov := mat.NewSymDense(n, nil)
	if q == 0 {
		return cov
	}

	l := math.Abs(s)
	cov.SetSym(0, 0, q*l*l*l/3)
	cov.SetSym(0, dir, q*l*l/2)
	cov.SetSym(dir, dir, q*l)

	return cov
}

// origin is the plane x = 0.
func origin() *detector.Plane {
	p, err := detector.NewPlane(1, 0, 0, 0)
	if err != nil {
		panic(err)
	}
	return p
}

// xPlane returns the plane orthogonal to x at x.
func xPlane(x float64) (*detector.Plane, error) {
	return detector.NewPlane(1, 0, x, 0)
}
