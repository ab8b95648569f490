package kf

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/estimate"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// joseph enables Joseph form covariance update
	joseph bool
}

// Option configures KF.
type Option func(*KF)

// WithJoseph makes KF update covariance in the Joseph form
// which keeps the covariance symmetric positive definite for suboptimal gains.
func WithJoseph() Option {
	return func(k *KF) {
		k.joseph = true
	}
}

// New creates new KF and returns it.
func New(opts ...Option) *KF {
	k := &KF{}
	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Joseph returns true if KF updates covariance in the Joseph form.
func (k *KF) Joseph() bool {
	return k.joseph
}

// Predict transports estimate est using tr and returns the predicted estimate.
// Predicted state is F*x + b and its covariance F*P*F' + Q.
// It returns error if tr dimensions do not match the estimate.
func (k *KF) Predict(est trackfit.Estimate, tr kalman.Transport) (trackfit.Estimate, error) {
	x, p, err := unpack(est)
	if err != nil {
		return nil, err
	}
	n := x.Len()

	if tr.F == nil {
		return nil, errors.Wrap(trackfit.ErrDimensionMismatch, "nil transport matrix")
	}

	if r, c := tr.F.Dims(); r != n || c != n {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "transport matrix [%d x %d], state %d", r, c, n)
	}

	xNext, err := matrix.Mul(tr.F, x)
	if err != nil {
		return nil, err
	}

	if tr.Drift != nil {
		if xNext, err = matrix.Add(xNext, tr.Drift); err != nil {
			return nil, errors.Wrap(err, "drift")
		}
	}

	cov, err := matrix.Product(tr.F, p, tr.F.T())
	if err != nil {
		return nil, err
	}

	if tr.Q != nil {
		if cov, err = matrix.Add(cov, tr.Q); err != nil {
			return nil, errors.Wrap(err, "process noise")
		}
	}

	pNext, err := matrix.Symmetrize(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext.ColView(0), pNext)
}

// Update corrects estimate est using measurement m and returns the filtered estimate.
// It returns error if m dimensions do not match the estimate or if the
// innovation covariance H*P*H' + R can not be inverted.
func (k *KF) Update(est trackfit.Estimate, m kalman.Measurement) (trackfit.Estimate, error) {
	x, p, err := unpack(est)
	if err != nil {
		return nil, err
	}

	inn, s, err := Residual(est, m)
	if err != nil {
		return nil, err
	}

	sInv, err := matrix.Inverse(s)
	if err != nil {
		return nil, errors.Wrap(err, "innovation covariance")
	}

	// K = P*H'*S^-1
	gain, err := matrix.Product(p, m.H.T(), sInv)
	if err != nil {
		return nil, err
	}

	corr, err := matrix.Mul(gain, inn)
	if err != nil {
		return nil, err
	}

	xNext, err := matrix.Add(x, corr)
	if err != nil {
		return nil, err
	}

	eye, err := matrix.Identity(x.Len())
	if err != nil {
		return nil, err
	}

	kh, err := matrix.Mul(gain, m.H)
	if err != nil {
		return nil, err
	}

	// eye - K*H
	a, err := matrix.Sub(eye, kh)
	if err != nil {
		return nil, err
	}

	var cov *mat.Dense
	if k.joseph {
		apa, err := matrix.Product(a, p, a.T())
		if err != nil {
			return nil, err
		}

		krk, err := matrix.Product(gain, m.R, gain.T())
		if err != nil {
			return nil, err
		}

		if cov, err = matrix.Add(apa, krk); err != nil {
			return nil, err
		}
	} else {
		if cov, err = matrix.Mul(a, p); err != nil {
			return nil, err
		}
	}

	pNext, err := matrix.Symmetrize(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext.ColView(0), pNext)
}

// Residual returns innovation m - H*x of estimate est and its covariance H*P*H' + R.
// It returns error if m dimensions do not match the estimate.
func Residual(est trackfit.Estimate, m kalman.Measurement) (mat.Vector, mat.Symmetric, error) {
	x, p, err := unpack(est)
	if err != nil {
		return nil, nil, err
	}

	if m.M == nil || m.H == nil || m.R == nil {
		return nil, nil, errors.Wrap(trackfit.ErrDimensionMismatch, "incomplete measurement")
	}

	k := m.M.Len()
	if r, c := m.H.Dims(); r != k || c != x.Len() {
		return nil, nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "measurement matrix [%d x %d], measurement %d, state %d", r, c, k, x.Len())
	}

	if m.R.SymmetricDim() != k {
		return nil, nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "measurement covariance %d, measurement %d", m.R.SymmetricDim(), k)
	}

	hx, err := matrix.Mul(m.H, x)
	if err != nil {
		return nil, nil, err
	}

	inn, err := matrix.Sub(m.M, hx)
	if err != nil {
		return nil, nil, err
	}

	hph, err := matrix.Product(m.H, p, m.H.T())
	if err != nil {
		return nil, nil, err
	}

	s, err := matrix.Add(hph, m.R)
	if err != nil {
		return nil, nil, err
	}

	sSym, err := matrix.Symmetrize(s)
	if err != nil {
		return nil, nil, err
	}

	return inn.ColView(0), sSym, nil
}

func unpack(est trackfit.Estimate) (mat.Vector, mat.Symmetric, error) {
	if est == nil {
		return nil, nil, errors.Wrap(trackfit.ErrBadShape, "nil estimate")
	}

	x, p := est.Val(), est.Cov()
	if x.Len() != p.SymmetricDim() {
		return nil, nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "state %d, covariance %d", x.Len(), p.SymmetricDim())
	}

	return x, p, nil
}
