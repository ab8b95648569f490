package estimate

import (
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Base is base estimate: a state vector and its covariance.
// Base copies its inputs and outputs so it is never mutated once created.
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns base estimate given val with zero covariance.
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, errors.Wrap(trackfit.ErrBadShape, "empty estimate value")
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(v.Len(), nil)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// NewBaseWithCov returns base estimate given value val and covariance cov.
// It returns error if val length does not match cov dimension.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val == nil || cov == nil {
		return nil, errors.Wrap(trackfit.ErrBadShape, "nil estimate value or covariance")
	}

	rv, rc := val.Len(), cov.SymmetricDim()
	if rv != rc {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "val: %d, cov: %d x %d", rv, rc, rc)
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(rc, nil)
	c.CopySym(cov)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// Dim returns estimate dimension
func (b *Base) Dim() int {
	return b.val.Len()
}

// StdDev returns standard deviation of the i-th estimate component.
func (b *Base) StdDev(i int) (float64, error) {
	if i < 0 || i >= b.val.Len() {
		return 0, errors.Wrapf(trackfit.ErrOutOfRange, "component %d of %d", i, b.val.Len())
	}

	return math.Sqrt(math.Max(b.cov.At(i, i), 0)), nil
}
