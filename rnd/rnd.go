// Package rnd draws correlated random samples from seeded sources.
package rnd

import (
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// WithCovN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance cov
// using the random numbers generated by rng.
// It returns matrix which contains the randomly generated samples stored in its columns.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, rng *rand.Rand) (*mat.Dense, error) {
	if n <= 0 {
		return nil, errors.Wrapf(trackfit.ErrBadShape, "invalid number of samples requested: %d", n)
	}

	if rng == nil {
		return nil, errors.New("nil random generator")
	}

	// Use SVD instead of Cholesky as Cholesky can be numerically unstable if cov is (almost) singular
	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, errors.New("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	rows := cov.SymmetricDim()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(U, samples)

	return samples, nil
}

// WithMeanCov draws a single sample from a Normal distribution with mean mu and covariance cov.
func WithMeanCov(mu []float64, cov mat.Symmetric, rng *rand.Rand) (*mat.VecDense, error) {
	if len(mu) != cov.SymmetricDim() {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "mean length %d, cov dimension %d", len(mu), cov.SymmetricDim())
	}

	sample, err := WithCovN(cov, 1, rng)
	if err != nil {
		return nil, err
	}

	out := mat.NewVecDense(len(mu), nil)
	out.AddVec(sample.ColView(0), mat.NewVecDense(len(mu), mu))

	return out, nil
}
