package detector

import (
	"fmt"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Cylinder is a cylindrical surface with its axis parallel to z.
// In the transverse plane it is a circle of radius r centred at (cx, cy) and its local
// coordinate is the arc length u = r*atan2(y-cy, x-cx).
type Cylinder struct {
	cx, cy float64
	r      float64
	cov    *mat.SymDense
}

// NewCylinder creates a cylinder of radius r whose axis passes through (cx, cy)
// measuring the arc length coordinate with resolution sigma.
func NewCylinder(cx, cy, r, sigma float64) (*Cylinder, error) {
	if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "cylinder radius: %g", r)
	}

	if sigma < 0 {
		return nil, fmt.Errorf("invalid cylinder resolution: %g", sigma)
	}

	return &Cylinder{
		cx:  cx,
		cy:  cy,
		r:   r,
		cov: mat.NewSymDense(1, []float64{sigma * sigma}),
	}, nil
}

// Axis returns the point where the cylinder axis crosses the transverse plane.
func (c *Cylinder) Axis() (cx, cy float64) {
	return c.cx, c.cy
}

// Radius returns cylinder radius.
func (c *Cylinder) Radius() float64 {
	return c.r
}

// Period returns the cylinder circumference: local coordinates u and u + 2*pi*r
// denote the same point.
func (c *Cylinder) Period() float64 {
	return 2 * math.Pi * c.r
}

// Local returns the arc length coordinate of the point (x, y) in (-pi*r, pi*r].
func (c *Cylinder) Local(x, y float64) float64 {
	return c.r * math.Atan2(y-c.cy, x-c.cx)
}

// Global returns the point at arc length coordinate u.
func (c *Cylinder) Global(u float64) (x, y float64) {
	phi := u / c.r
	return c.cx + c.r*math.Cos(phi), c.cy + c.r*math.Sin(phi)
}

// CrossLine returns path lengths s at which (x, y) + s*(dx, dy) crosses the cylinder.
func (c *Cylinder) CrossLine(x, y, dx, dy float64) []float64 {
	a := dx*dx + dy*dy
	if a == 0 {
		return nil
	}

	fx, fy := x-c.cx, y-c.cy
	b := 2 * (dx*fx + dy*fy)
	cc := fx*fx + fy*fy - c.r*c.r

	disc := b*b - 4*a*cc
	switch {
	case disc < 0:
		return nil
	case disc == 0:
		return []float64{-b / (2 * a)}
	}

	sq := math.Sqrt(disc)

	return []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}
}

// CrossCircle returns points at which the circle centred at (x, y) with radius r crosses the cylinder.
// Concentric circles never cross; tangent circles yield a single point.
func (c *Cylinder) CrossCircle(x, y, r float64) [][2]float64 {
	d := math.Hypot(x-c.cx, y-c.cy)
	if d == 0 || d > c.r+r || d < math.Abs(c.r-r) {
		return nil
	}

	// distance from the cylinder axis to the chord joining the crossings
	a := (c.r*c.r - r*r + d*d) / (2 * d)
	ex, ey := (x-c.cx)/d, (y-c.cy)/d
	bx, by := c.cx+a*ex, c.cy+a*ey

	h2 := c.r*c.r - a*a
	if h2 <= 0 {
		return [][2]float64{{bx, by}}
	}
	h := math.Sqrt(h2)

	return [][2]float64{{bx - h*ey, by + h*ex}, {bx + h*ey, by - h*ex}}
}

// Intersect returns local measurement of track t crossing the cylinder.
func (c *Cylinder) Intersect(t trackfit.Track) (mat.Vector, error) {
	return intersect(c, t)
}

// Project returns the 1 x n matrix which projects the state onto the measured local coordinate.
func (c *Cylinder) Project(n int) (mat.Matrix, error) {
	return project(n)
}

// Noise returns measurement covariance.
func (c *Cylinder) Noise() mat.Symmetric {
	r := mat.NewSymDense(1, nil)
	r.CopySym(c.cov)

	return r
}

// String implements the Stringer interface.
func (c *Cylinder) String() string {
	return fmt.Sprintf("Cylinder{axis=(%g, %g) r=%g}", c.cx, c.cy, c.r)
}
