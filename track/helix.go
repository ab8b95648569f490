package track

import (
	"fmt"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// kappaMin is the curvature below which a helix is propagated as a straight line.
const kappaMin = 1e-12

// Helix is a charged particle track in a solenoidal field projected on the transverse plane.
// Its parameters are the local coordinate u on the reference surface, the direction
// angle phi and the signed curvature kappa. Positive curvature bends counter clockwise.
type Helix struct {
	u, phi, kappa float64
	surf          trackfit.Surface
	// scatter is direction variance per unit path length
	scatter float64
}

// NewHelix creates a helix passing through (x, y) with direction phi and curvature kappa.
// It is referenced to the plane orthogonal to x at x.
func NewHelix(x, y, phi, kappa float64) (*Helix, error) {
	p, err := xPlane(x)
	if err != nil {
		return nil, err
	}

	return NewHelixAt(p, y, phi, kappa)
}

// NewHelixAt creates a helix crossing surface s at local coordinate u.
func NewHelixAt(s trackfit.Surface, u, phi, kappa float64) (*Helix, error) {
	if s == nil {
		return nil, fmt.Errorf("invalid reference surface: nil")
	}

	if math.IsNaN(kappa) || math.IsInf(kappa, 0) {
		return nil, fmt.Errorf("invalid curvature: %g", kappa)
	}

	return &Helix{
		u:     u,
		phi:   phi,
		kappa: kappa,
		surf:  s,
	}, nil
}

// WithScattering returns a copy of the helix which accumulates direction variance q per unit path length.
func (h *Helix) WithScattering(q float64) *Helix {
	c := *h
	c.scatter = q
	return &c
}

// Params returns helix parameters (u, phi, kappa) at the reference surface.
func (h *Helix) Params() mat.Vector {
	return mat.NewVecDense(3, []float64{h.u, h.phi, h.kappa})
}

// Surface returns reference surface.
func (h *Helix) Surface() trackfit.Surface {
	return h.surf
}

// Position returns the point where the helix crosses its reference surface.
func (h *Helix) Position() (x, y float64) {
	return h.surf.Global(h.u)
}

// Phi returns direction angle at the reference surface.
func (h *Helix) Phi() float64 {
	return h.phi
}

// Kappa returns signed curvature.
func (h *Helix) Kappa() float64 {
	return h.kappa
}

// Centre returns the centre of the helix circle and its radius.
// It returns false for a straight helix.
func (h *Helix) Centre() (cx, cy, r float64, ok bool) {
	if math.Abs(h.kappa) < kappaMin {
		return 0, 0, math.Inf(1), false
	}

	x, y := h.Position()
	sin, cos := math.Sincos(h.phi)

	return x - sin/h.kappa, y + cos/h.kappa, 1 / math.Abs(h.kappa), true
}

// Point returns the point reached after travelling path length s from the reference surface.
func (h *Helix) Point(s float64) (x, y float64) {
	x0, y0 := h.Position()
	sin, cos := math.Sincos(h.phi)
	if math.Abs(h.kappa) < kappaMin {
		return x0 + s*cos, y0 + s*sin
	}

	sin1, cos1 := math.Sincos(h.phi + h.kappa*s)

	return x0 + (sin1-sin)/h.kappa, y0 - (cos1-cos)/h.kappa
}

// Propagate returns the helix referenced to surface s and the Jacobian of the new
// parameters with respect to the current ones.
func (h *Helix) Propagate(s trackfit.Surface, dir trackfit.Direction) (trackfit.Track, mat.Matrix, error) {
	ss, next, err := h.crossings(s, h.u, h.phi, h.kappa)
	if err != nil {
		return nil, nil, err
	}

	l, i, ok := choose(ss, dir)
	if !ok {
		return nil, nil, errors.Wrapf(trackfit.ErrNoIntersection, "helix %v to %v", h, s)
	}

	jac, err := jacobian(func(p []float64) ([]float64, error) {
		ss, next, err := h.crossings(s, p[0], p[1], p[2])
		if err != nil {
			return nil, err
		}
		j := nearest(ss, l)
		if j < 0 {
			return nil, trackfit.ErrNoIntersection
		}
		return []float64{detector.Unwrap(s, next[j][0], next[i][0]), next[j][1], next[j][2]}, nil
	}, []float64{h.u, h.phi, h.kappa})
	if err != nil {
		return nil, nil, err
	}

	return &Helix{
		u:       next[i][0],
		phi:     next[i][1],
		kappa:   h.kappa,
		surf:    s,
		scatter: h.scatter,
	}, jac, nil
}

// ProcessNoise returns process noise accumulated on the way to surface s.
func (h *Helix) ProcessNoise(s trackfit.Surface, dir trackfit.Direction) (mat.Symmetric, error) {
	ss, _, err := h.crossings(s, h.u, h.phi, h.kappa)
	if err != nil {
		return nil, err
	}

	l, _, ok := choose(ss, dir)
	if !ok {
		return nil, errors.Wrapf(trackfit.ErrNoIntersection, "helix %v to %v", h, s)
	}

	return scattering(h.scatter, l, 3, 1), nil
}

// String implements the Stringer interface.
func (h *Helix) String() string {
	return fmt.Sprintf("Helix{u=%g phi=%g kappa=%g surface=%v}", h.u, h.phi, h.kappa, h.surf)
}

// crossings returns signed path lengths to every crossing of surface s by the helix
// with the given parameters along with the parameters (u, phi, kappa) at each crossing.
// Path lengths of curved helices lie within half a turn of the reference surface.
func (h *Helix) crossings(s trackfit.Surface, u, phi, kappa float64) ([]float64, [][]float64, error) {
	x, y := h.surf.Global(u)
	sin, cos := math.Sincos(phi)

	var (
		ss   []float64
		next [][]float64
	)

	if math.Abs(kappa) < kappaMin {
		for _, l := range s.CrossLine(x, y, cos, sin) {
			ss = append(ss, l)
			next = append(next, []float64{s.Local(x+l*cos, y+l*sin), phi, kappa})
		}
	} else {
		cx, cy := x-sin/kappa, y+cos/kappa
		for _, pt := range s.CrossCircle(cx, cy, 1/math.Abs(kappa)) {
			psi := math.Atan2(kappa*(pt[0]-cx), -kappa*(pt[1]-cy))
			delta := math.Remainder(psi-phi, 2*math.Pi)
			ss = append(ss, delta/kappa)
			next = append(next, []float64{s.Local(pt[0], pt[1]), phi + delta, kappa})
		}
	}

	if len(ss) == 0 {
		return nil, nil, errors.Wrapf(trackfit.ErrNoIntersection, "helix %v to %v", h, s)
	}

	return ss, next, nil
}
