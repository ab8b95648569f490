package trackfit

import "gonum.org/v1/gonum/mat"

// Direction is the order in which detector surfaces are traversed.
type Direction int

const (
	// Forward traverses surfaces in detector order
	Forward Direction = iota
	// Backward traverses surfaces in reverse detector order
	Backward
)

// String implements the Stringer interface.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Sign returns +1 for Forward and -1 for Backward.
func (d Direction) Sign() float64 {
	if d == Backward {
		return -1.0
	}
	return 1.0
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Backward {
		return Forward
	}
	return Backward
}

// Estimate is track state estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Noise is measurement or process noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}

// Shape is the geometry of a detector surface in the transverse (x, y) plane.
type Shape interface {
	// Local returns the local coordinate of the point (x, y) lying on the shape
	Local(x, y float64) float64
	// Global returns the point of the shape at local coordinate u
	Global(u float64) (x, y float64)
	// CrossLine returns path lengths s at which (x, y) + s*(dx, dy) crosses the shape
	CrossLine(x, y, dx, dy float64) []float64
	// CrossCircle returns points at which the circle centred at (cx, cy) with radius r crosses the shape
	CrossCircle(cx, cy, r float64) [][2]float64
}

// Surface is a detector surface a Track can cross.
type Surface interface {
	// Shape is surface geometry
	Shape
	// Intersect returns local measurement of the track crossing the surface
	Intersect(Track) (mat.Vector, error)
	// Project returns the matrix projecting a state of dimension n onto the measured subspace
	Project(n int) (mat.Matrix, error)
	// Noise returns measurement covariance
	Noise() mat.Symmetric
}

// Track is a parametric trajectory referenced to a surface.
type Track interface {
	// Params returns track parameters at the reference surface
	Params() mat.Vector
	// Surface returns reference surface
	Surface() Surface
	// Propagate propagates the track to surface s travelling in direction dir.
	// It returns the track referenced to s and the propagation Jacobian.
	Propagate(s Surface, dir Direction) (Track, mat.Matrix, error)
	// ProcessNoise returns process noise accumulated when propagating to s
	ProcessNoise(s Surface, dir Direction) (mat.Symmetric, error)
	// Position returns the position of the track on its reference surface
	Position() (x, y float64)
}
