package track

import (
	"fmt"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Line is a straight track in the transverse plane.
// Its parameters are the local coordinate u on the reference surface and slope t = dy/dx.
type Line struct {
	u, t float64
	surf trackfit.Surface
	// scatter is slope variance per unit path length
	scatter float64
}

// NewLine creates a line y = slope*x + intercept referenced to the plane x = 0.
func NewLine(slope, intercept float64) *Line {
	return &Line{
		u:    intercept,
		t:    slope,
		surf: origin(),
	}
}

// NewLineAt creates a line with slope crossing surface s at local coordinate u.
func NewLineAt(s trackfit.Surface, u, slope float64) (*Line, error) {
	if s == nil {
		return nil, fmt.Errorf("invalid reference surface: nil")
	}

	return &Line{
		u:    u,
		t:    slope,
		surf: s,
	}, nil
}

// WithScattering returns a copy of the line which accumulates slope variance q per unit x.
func (l *Line) WithScattering(q float64) *Line {
	c := *l
	c.scatter = q
	return &c
}

// Params returns line parameters (u, t) at the reference surface.
func (l *Line) Params() mat.Vector {
	return mat.NewVecDense(2, []float64{l.u, l.t})
}

// Surface returns reference surface.
func (l *Line) Surface() trackfit.Surface {
	return l.surf
}

// Position returns the point where the line crosses its reference surface.
func (l *Line) Position() (x, y float64) {
	return l.surf.Global(l.u)
}

// Slope returns line slope dy/dx.
func (l *Line) Slope() float64 {
	return l.t
}

// Intercept returns y at x = 0.
func (l *Line) Intercept() float64 {
	x, y := l.Position()
	return y - l.t*x
}

// Evaluate returns y of the line at x.
func (l *Line) Evaluate(x float64) float64 {
	return l.Intercept() + l.t*x
}

// Propagate returns the line referenced to surface s and the Jacobian of the new
// parameters with respect to the current ones.
func (l *Line) Propagate(s trackfit.Surface, dir trackfit.Direction) (trackfit.Track, mat.Matrix, error) {
	dx, err := l.cross(s, dir)
	if err != nil {
		return nil, nil, err
	}

	x, y := l.Position()
	next := &Line{
		u:       s.Local(x+dx, y+dx*l.t),
		t:       l.t,
		surf:    s,
		scatter: l.scatter,
	}

	from, okFrom := l.surf.(*detector.Plane)
	to, okTo := s.(*detector.Plane)
	if okFrom && okTo {
		return next, planeJacobian(from, to, l.t, dx), nil
	}

	jac, err := jacobian(func(p []float64) ([]float64, error) {
		out, err := l.transport(s, p[0], p[1], dx)
		if err != nil {
			return nil, err
		}
		out[0] = detector.Unwrap(s, out[0], next.u)
		return out, nil
	}, []float64{l.u, l.t})
	if err != nil {
		return nil, nil, err
	}

	return next, jac, nil
}

// ProcessNoise returns process noise accumulated on the way to surface s.
func (l *Line) ProcessNoise(s trackfit.Surface, dir trackfit.Direction) (mat.Symmetric, error) {
	dx, err := l.cross(s, dir)
	if err != nil {
		return nil, err
	}

	return scattering(l.scatter, dx, 2, 1), nil
}

// String implements the Stringer interface.
func (l *Line) String() string {
	return fmt.Sprintf("Line{u=%g t=%g surface=%v}", l.u, l.t, l.surf)
}

// cross returns the x distance to the crossing with surface s.
func (l *Line) cross(s trackfit.Surface, dir trackfit.Direction) (float64, error) {
	x, y := l.Position()
	dx, _, ok := choose(s.CrossLine(x, y, 1, l.t), dir)
	if !ok {
		return 0, errors.Wrapf(trackfit.ErrNoIntersection, "line %v to %v", l, s)
	}

	return dx, nil
}

// transport maps parameters (u, t) on the reference surface to surface s, picking
// the crossing closest to the x distance hint.
func (l *Line) transport(s trackfit.Surface, u, t, hint float64) ([]float64, error) {
	x, y := l.surf.Global(u)
	ss := s.CrossLine(x, y, 1, t)
	i := nearest(ss, hint)
	if i < 0 {
		return nil, trackfit.ErrNoIntersection
	}
	dx := ss[i]

	return []float64{s.Local(x+dx, y+dx*t), t}, nil
}

// planeJacobian returns the Jacobian of line parameters transported between planes
// by the x distance dx.
func planeJacobian(from, to *detector.Plane, t, dx float64) *mat.Dense {
	nx, ny := to.Normal()
	ax, ay := from.Axis()
	bx, by := to.Axis()

	// direction (1, t) projected on the target normal
	nd := nx + ny*t

	// du_B/du_A = e_B . (e_A - (n.e_A)/(n.d) d)
	k := (nx*ax + ny*ay) / nd
	duu := bx*(ax-k) + by*(ay-k*t)

	// du_B/dt = dx * e_B . ((0, 1) - n_y/(n.d) d)
	m := ny / nd
	dut := dx * (bx*(-m) + by*(1-m*t))

	return mat.NewDense(2, 2, []float64{
		duu, dut,
		0, 1,
	})
}
