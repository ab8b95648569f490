package fit

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// transport linearises propagation of ref to surface s about the reference trajectory.
// The returned transport maps a state x at the reference surface to F*x + b where F is
// the propagation Jacobian and b = p_next - F*p_ref.
func transport(ref trackfit.Track, s trackfit.Surface, dir trackfit.Direction) (kalman.Transport, trackfit.Track, error) {
	next, jac, err := ref.Propagate(s, dir)
	if err != nil {
		return kalman.Transport{}, nil, err
	}

	q, err := ref.ProcessNoise(s, dir)
	if err != nil {
		return kalman.Transport{}, nil, err
	}

	fp, err := matrix.Mul(jac, ref.Params())
	if err != nil {
		return kalman.Transport{}, nil, errors.Wrap(err, "transport")
	}

	drift, err := matrix.Sub(next.Params(), fp)
	if err != nil {
		return kalman.Transport{}, nil, errors.Wrap(err, "transport")
	}

	return kalman.Transport{
		F:     jac,
		Q:     q,
		Drift: drift.ColView(0),
	}, next, nil
}

// measurement returns measurement of an n dimensional state by hit h on surface s.
// The hit coordinate is unwrapped to the period of s closest to the predicted coordinate u.
func measurement(s trackfit.Surface, n int, h detector.Hit, u float64) (kalman.Measurement, error) {
	H, err := s.Project(n)
	if err != nil {
		return kalman.Measurement{}, err
	}

	if h.Value == nil || h.Value.Len() != 1 {
		return kalman.Measurement{}, errors.Wrap(trackfit.ErrDimensionMismatch, "hit value")
	}

	return kalman.Measurement{
		M: mat.NewVecDense(1, []float64{detector.Unwrap(s, h.Value.AtVec(0), u)}),
		H: H,
		R: h.Cov,
	}, nil
}
