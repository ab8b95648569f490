// Package matrix implements a shape checked dense matrix substrate on top of gonum.
// Unlike gonum, which panics on incompatible operands, every operation in this
// package reports shape and numerical failures as errors.
package matrix

import (
	"fmt"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	mx "github.com/milosgajdos/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// New creates a new r x c matrix initialized with data stored in row-major order.
// If data is nil the matrix is zero-filled.
// It returns error if either dimension is non-positive or data length does not match r*c.
func New(r, c int, data []float64) (*mat.Dense, error) {
	if r <= 0 || c <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "dimensions: [%d x %d]", r, c)
	}

	if data != nil && len(data) != r*c {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "data length %d for [%d x %d]", len(data), r, c)
	}

	return mat.NewDense(r, c, data), nil
}

// Identity returns n x n identity matrix.
func Identity(n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "identity dimension: %d", n)
	}

	eye, err := mx.NewDenseValIdentity(n, 1.0)
	if err != nil {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "identity: %v", err)
	}

	return mat.DenseCopyOf(eye), nil
}

// At returns the element of m stored at row i and column j.
func At(m mat.Matrix, i, j int) (float64, error) {
	r, c := m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		return 0, errors.Wrapf(trackfit.ErrOutOfRange, "(%d, %d) in [%d x %d]", i, j, r, c)
	}

	return m.At(i, j), nil
}

// Set sets the element of m at row i and column j to v.
func Set(m *mat.Dense, i, j int, v float64) error {
	r, c := m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		return errors.Wrapf(trackfit.ErrOutOfRange, "(%d, %d) in [%d x %d]", i, j, r, c)
	}
	m.Set(i, j, v)

	return nil
}

// Add returns a + b.
func Add(a, b mat.Matrix) (*mat.Dense, error) {
	if err := sameShape("add", a, b); err != nil {
		return nil, err
	}

	out := &mat.Dense{}
	out.Add(a, b)

	return out, nil
}

// Sub returns a - b.
func Sub(a, b mat.Matrix) (*mat.Dense, error) {
	if err := sameShape("sub", a, b); err != nil {
		return nil, err
	}

	out := &mat.Dense{}
	out.Sub(a, b)

	return out, nil
}

// Mul returns matrix product a*b.
func Mul(a, b mat.Matrix) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ca != rb {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "mul: [%d x %d] * [%d x %d]", ra, ca, rb, cb)
	}

	out := &mat.Dense{}
	out.Mul(a, b)

	return out, nil
}

// Product returns the product of all factors, multiplied left to right.
func Product(factors ...mat.Matrix) (*mat.Dense, error) {
	if len(factors) == 0 {
		return nil, errors.Wrap(trackfit.ErrBadShape, "product of no factors")
	}

	if len(factors) == 1 {
		return mat.DenseCopyOf(factors[0]), nil
	}

	for i := 1; i < len(factors); i++ {
		rp, cp := factors[i-1].Dims()
		rn, cn := factors[i].Dims()
		if cp != rn {
			return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "product factor %d: [%d x %d] * [%d x %d]", i, rp, cp, rn, cn)
		}
	}

	out := &mat.Dense{}
	out.Product(factors...)

	return out, nil
}

// Scale returns f*a.
func Scale(f float64, a mat.Matrix) *mat.Dense {
	out := &mat.Dense{}
	out.Scale(f, a)

	return out
}

// T returns a copy of the transpose of a.
func T(a mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(a.T())
}

// Inverse returns the inverse of a.
// It returns ErrDimensionMismatch if a is not square and ErrSingular if a
// is singular or too ill-conditioned for the inverse to be trusted.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "inverse of non-square [%d x %d]", r, c)
	}

	inv := &mat.Dense{}
	if err := inv.Inverse(a); err != nil {
		return nil, errors.Wrapf(trackfit.ErrSingular, "inverse of [%d x %d]: %v", r, c, err)
	}

	if HasNaNInf(inv) {
		return nil, errors.Wrapf(trackfit.ErrSingular, "inverse of [%d x %d] is not finite", r, c)
	}

	return inv, nil
}

// Symmetrize returns the symmetric part (a + a')/2 of a square matrix a.
func Symmetrize(a mat.Matrix) (*mat.SymDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "symmetrize non-square [%d x %d]", r, c)
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}

	return sym, nil
}

// Trace returns the trace of a square matrix a.
func Trace(a mat.Matrix) (float64, error) {
	r, c := a.Dims()
	if r != c {
		return 0, errors.Wrapf(trackfit.ErrDimensionMismatch, "trace of non-square [%d x %d]", r, c)
	}

	return mat.Trace(a), nil
}

// HasNaNInf returns true if any element of m is NaN or Inf.
func HasNaNInf(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}

	return false
}

// Format returns m formatted for printing.
func Format(m mat.Matrix) string {
	return fmt.Sprintf("%v", mx.Format(m))
}

func sameShape(op string, a, b mat.Matrix) error {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return errors.Wrapf(trackfit.ErrDimensionMismatch, "%s: [%d x %d] and [%d x %d]", op, ra, ca, rb, cb)
	}

	return nil
}
