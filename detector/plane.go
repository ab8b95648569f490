package detector

import (
	"fmt"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Plane is a planar surface: the set of points p satisfying n*p = c.
// Its local coordinate u runs along the axis e = (-n_y, n_x) with the origin in c*n.
// A Plane may be bounded to lo <= u <= hi and segmented into strips of equal pitch.
type Plane struct {
	// nx, ny is unit normal
	nx, ny float64
	// c is offset from origin
	c float64
	// lo, hi bound the local coordinate when bounded is set
	lo, hi  float64
	bounded bool
	// strips is number of strips; 0 means unsegmented
	strips int
	// r is measurement covariance
	r *mat.SymDense
}

// NewPlane creates an unbounded plane with normal (nx, ny) at offset c which measures
// the local coordinate with resolution sigma. The normal is normalized.
// It returns error if the normal has zero length or sigma is negative.
func NewPlane(nx, ny, c, sigma float64) (*Plane, error) {
	norm := math.Hypot(nx, ny)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "plane normal: (%g, %g)", nx, ny)
	}

	if sigma < 0 {
		return nil, fmt.Errorf("invalid plane resolution: %g", sigma)
	}

	return &Plane{
		nx: nx / norm,
		ny: ny / norm,
		c:  c / norm,
		r:  mat.NewSymDense(1, []float64{sigma * sigma}),
	}, nil
}

// NewBoundedPlane creates a plane which only extends from lo to hi along its local axis.
func NewBoundedPlane(nx, ny, c, lo, hi, sigma float64) (*Plane, error) {
	if hi <= lo {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "plane extent: [%g, %g]", lo, hi)
	}

	p, err := NewPlane(nx, ny, c, sigma)
	if err != nil {
		return nil, err
	}
	p.lo, p.hi, p.bounded = lo, hi, true

	return p, nil
}

// NewStripPlane creates a plane orthogonal to the x axis at x, centred at y with the given
// height and segmented into strips. Hits are quantized to strip centres so the resolution
// is the one of a uniform distribution over a strip: pitch/sqrt(12).
func NewStripPlane(x, y, height float64, strips int) (*Plane, error) {
	if height <= 0 || strips <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "strip plane height %g, strips %d", height, strips)
	}

	pitch := height / float64(strips)
	p, err := NewBoundedPlane(1, 0, x, y-0.5*height, y+0.5*height, pitch/math.Sqrt(12))
	if err != nil {
		return nil, err
	}
	p.strips = strips

	return p, nil
}

// Normal returns unit normal of the plane.
func (p *Plane) Normal() (nx, ny float64) {
	return p.nx, p.ny
}

// Offset returns distance of the plane from origin along its normal.
func (p *Plane) Offset() float64 {
	return p.c
}

// Axis returns unit vector of the local coordinate axis.
func (p *Plane) Axis() (ex, ey float64) {
	return -p.ny, p.nx
}

// Extent returns the bounds of the plane local coordinate and true if the plane is bounded.
func (p *Plane) Extent() (lo, hi float64, ok bool) {
	return p.lo, p.hi, p.bounded
}

// Local returns the local coordinate of the point (x, y).
func (p *Plane) Local(x, y float64) float64 {
	return -p.ny*x + p.nx*y
}

// Global returns the point at local coordinate u.
func (p *Plane) Global(u float64) (x, y float64) {
	return p.c*p.nx - u*p.ny, p.c*p.ny + u*p.nx
}

// CrossLine returns path length s at which (x, y) + s*(dx, dy) crosses the plane.
// Lines parallel to the plane and crossings outside the plane extent yield no crossing.
func (p *Plane) CrossLine(x, y, dx, dy float64) []float64 {
	den := p.nx*dx + p.ny*dy
	if den == 0 {
		return nil
	}

	s := (p.c - (p.nx*x + p.ny*y)) / den
	if !p.contains(p.Local(x+s*dx, y+s*dy)) {
		return nil
	}

	return []float64{s}
}

// CrossCircle returns points at which the circle centred at (cx, cy) with radius r crosses the plane.
// A tangent circle yields a single point.
func (p *Plane) CrossCircle(cx, cy, r float64) [][2]float64 {
	dist := p.nx*cx + p.ny*cy - p.c
	if math.Abs(dist) > r {
		return nil
	}

	// foot of the perpendicular from the circle centre
	fx, fy := cx-dist*p.nx, cy-dist*p.ny
	h2 := r*r - dist*dist

	var pts [][2]float64
	if h2 <= 0 {
		pts = [][2]float64{{fx, fy}}
	} else {
		h := math.Sqrt(h2)
		ex, ey := p.Axis()
		pts = [][2]float64{{fx - h*ex, fy - h*ey}, {fx + h*ex, fy + h*ey}}
	}

	out := pts[:0]
	for _, pt := range pts {
		if p.contains(p.Local(pt[0], pt[1])) {
			out = append(out, pt)
		}
	}

	return out
}

// Intersect returns local measurement of track t crossing the plane.
func (p *Plane) Intersect(t trackfit.Track) (mat.Vector, error) {
	return intersect(p, t)
}

// Project returns the 1 x n matrix which projects the state onto the measured local coordinate.
func (p *Plane) Project(n int) (mat.Matrix, error) {
	return project(n)
}

// Noise returns measurement covariance.
func (p *Plane) Noise() mat.Symmetric {
	r := mat.NewSymDense(1, nil)
	r.CopySym(p.r)

	return r
}

// Strips returns number of strips the plane is segmented into.
func (p *Plane) Strips() int {
	return p.strips
}

// Strip returns index of the strip containing local coordinate u.
// It returns false if the plane is not segmented or u falls outside the plane.
func (p *Plane) Strip(u float64) (int, bool) {
	if p.strips == 0 || !p.contains(u) {
		return 0, false
	}

	pitch := (p.hi - p.lo) / float64(p.strips)
	i := int(math.Floor((u - p.lo) / pitch))
	if i >= p.strips {
		i = p.strips - 1
	}

	return i, true
}

// StripCentre returns local coordinate of the centre of strip i.
func (p *Plane) StripCentre(i int) (float64, error) {
	if i < 0 || i >= p.strips {
		return 0, errors.Wrapf(trackfit.ErrOutOfRange, "strip %d of %d", i, p.strips)
	}

	pitch := (p.hi - p.lo) / float64(p.strips)

	return p.lo + (float64(i)+0.5)*pitch, nil
}

// String implements the Stringer interface.
func (p *Plane) String() string {
	if p.bounded {
		return fmt.Sprintf("Plane{n=(%g, %g) c=%g u=[%g, %g] strips=%d}", p.nx, p.ny, p.c, p.lo, p.hi, p.strips)
	}
	return fmt.Sprintf("Plane{n=(%g, %g) c=%g}", p.nx, p.ny, p.c)
}

func (p *Plane) contains(u float64) bool {
	if !p.bounded {
		return true
	}
	return u >= p.lo && u <= p.hi
}
