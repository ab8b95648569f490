// Package twofilter combines independent forward and backward filter runs.
package twofilter

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/estimate"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/matrix"
	"github.com/pkg/errors"
)

// Combine returns smoothed estimates at every surface visited by both runs, ordered
// by the forward run. At each surface the forward filtered estimate is combined with
// the backward predicted estimate, which holds no information from that surface, as
//
//	P = (Pf^-1 + Pb^-1)^-1
//	x = P*(Pf^-1*xf + Pb^-1*xb)
//
// It returns ErrNotReady if either run is incomplete or runs in the wrong direction.
func Combine(fwd, bwd *kf.Run) ([]trackfit.Estimate, error) {
	if fwd == nil || bwd == nil {
		return nil, errors.Wrap(trackfit.ErrNotReady, "nil run")
	}

	if !fwd.Closed() || !bwd.Closed() {
		return nil, errors.Wrap(trackfit.ErrNotReady, "incomplete run")
	}

	if fwd.Direction() != trackfit.Forward || bwd.Direction() != trackfit.Backward {
		return nil, errors.Wrapf(trackfit.ErrNotReady, "runs in %s and %s direction", fwd.Direction(), bwd.Direction())
	}

	var out []trackfit.Estimate
	for _, f := range fwd.Steps() {
		b, ok := bwd.Step(f.Surface)
		if !ok {
			continue
		}

		e, err := combine(f.Filtered, b.Predicted)
		if err != nil {
			return nil, errors.Wrapf(err, "combine surface %d", f.Surface)
		}
		out = append(out, e)
	}

	return out, nil
}

func combine(f, b trackfit.Estimate) (trackfit.Estimate, error) {
	fInv, err := matrix.Inverse(f.Cov())
	if err != nil {
		return nil, err
	}

	bInv, err := matrix.Inverse(b.Cov())
	if err != nil {
		return nil, err
	}

	info, err := matrix.Add(fInv, bInv)
	if err != nil {
		return nil, err
	}

	p, err := matrix.Inverse(info)
	if err != nil {
		return nil, err
	}

	fx, err := matrix.Mul(fInv, f.Val())
	if err != nil {
		return nil, err
	}

	bx, err := matrix.Mul(bInv, b.Val())
	if err != nil {
		return nil, err
	}

	sum, err := matrix.Add(fx, bx)
	if err != nil {
		return nil, err
	}

	x, err := matrix.Mul(p, sum)
	if err != nil {
		return nil, err
	}

	cov, err := matrix.Symmetrize(p)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(x.ColView(0), cov)
}
