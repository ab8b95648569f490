package rts

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/estimate"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/matrix"
	"github.com/pkg/errors"
)

// RTS is Rauch-Tung-Striebel smoother
type RTS struct{}

// New creates new RTS and returns it.
func New() *RTS {
	return &RTS{}
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// It smooths the filtered estimates of a complete forward run backwards from the last step,
// stores the smoothed estimates in the run and returns them.
// It returns ErrNotReady if r is not a complete forward run.
func (s *RTS) Smooth(r *kf.Run) ([]trackfit.Estimate, error) {
	if r == nil {
		return nil, errors.Wrap(trackfit.ErrNotReady, "nil run")
	}

	if !r.Closed() || r.Stage() == kalman.Smoothed {
		return nil, errors.Wrapf(trackfit.ErrNotReady, "run in stage %s", r.Stage())
	}

	if r.Direction() != trackfit.Forward {
		return nil, errors.Wrapf(trackfit.ErrNotReady, "%s run", r.Direction())
	}

	steps := r.Steps()
	n := len(steps)
	sx := make([]trackfit.Estimate, n)
	if n == 0 {
		return sx, r.SetSmoothed(sx)
	}

	// the last filtered estimate is already smoothed
	sx[n-1] = steps[n-1].Filtered

	for k := n - 2; k >= 0; k-- {
		e, err := smoothStep(steps[k].Filtered, steps[k+1], sx[k+1])
		if err != nil {
			return nil, errors.Wrapf(err, "smooth surface %d", steps[k].Surface)
		}
		sx[k] = e
	}

	if err := r.SetSmoothed(sx); err != nil {
		return nil, err
	}

	return sx, nil
}

// smoothStep smooths filtered estimate filt given the next step and its smoothed estimate.
func smoothStep(filt trackfit.Estimate, next kf.Step, smooth trackfit.Estimate) (trackfit.Estimate, error) {
	pred := next.Predicted

	// P_(k+1|k)^-1
	pinv, err := matrix.Inverse(pred.Cov())
	if err != nil {
		return nil, err
	}

	// C = P_k|k * F_(k+1)' * P_(k+1|k)^-1
	c, err := matrix.Product(filt.Cov(), next.Transport.F.T(), pinv)
	if err != nil {
		return nil, err
	}

	// x_k = x_k|k + C*(x_(k+1)^s - x_(k+1|k))
	dx, err := matrix.Sub(smooth.Val(), pred.Val())
	if err != nil {
		return nil, err
	}

	x, err := matrix.Mul(c, dx)
	if err != nil {
		return nil, err
	}

	if x, err = matrix.Add(filt.Val(), x); err != nil {
		return nil, err
	}

	// P_k = P_k|k + C*(P_(k+1)^s - P_(k+1|k))*C'
	dp, err := matrix.Sub(smooth.Cov(), pred.Cov())
	if err != nil {
		return nil, err
	}

	p, err := matrix.Product(c, dp, c.T())
	if err != nil {
		return nil, err
	}

	if p, err = matrix.Add(filt.Cov(), p); err != nil {
		return nil, err
	}

	cov, err := matrix.Symmetrize(p)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(x.ColView(0), cov)
}
