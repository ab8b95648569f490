package noise

import (
	"fmt"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Zero is noise which never perturbs a measurement.
// Detectors without smearing measure with one dimensional Zero noise.
type Zero struct {
	n int
}

// NewZero creates n dimensional zero noise.
// It returns error if n is non-positive.
func NewZero(n int) (*Zero, error) {
	if n <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "noise dimension: %d", n)
	}

	return &Zero{n: n}, nil
}

// Sample returns a zero vector.
func (e *Zero) Sample() mat.Vector {
	return mat.NewVecDense(e.n, nil)
}

// Cov returns a zero covariance matrix.
func (e *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(e.n, nil)
}

// Mean returns zero mean.
func (e *Zero) Mean() []float64 {
	return make([]float64, e.n)
}

// Reset does nothing: zero noise has no state.
func (e *Zero) Reset() error { return nil }

// String implements the Stringer interface.
func (e *Zero) String() string {
	return fmt.Sprintf("Zero{n=%d}", e.n)
}
