package kf

import (
	"fmt"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/estimate"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/pkg/errors"
)

// Step is a single filter step at a detector surface.
type Step struct {
	// Surface is the index of the surface in the detector
	Surface int
	// Transport transported the previous estimate to the surface
	Transport kalman.Transport
	// Predicted is the predicted estimate
	Predicted trackfit.Estimate
	// Filtered is the filtered estimate; it equals Predicted when there was no measurement
	Filtered trackfit.Estimate
	// Measured is true if the step was updated by a measurement
	Measured bool
	// Smoothed is the smoothed estimate
	Smoothed trackfit.Estimate
}

// Estimate returns the most refined estimate available at the step.
func (s Step) Estimate() trackfit.Estimate {
	switch {
	case s.Smoothed != nil:
		return s.Smoothed
	case s.Filtered != nil:
		return s.Filtered
	}
	return s.Predicted
}

// Run is a sequence of filter steps over detector surfaces traversed in one direction.
type Run struct {
	f      kalman.Filter
	init   trackfit.Estimate
	dir    trackfit.Direction
	steps  []Step
	stage  kalman.Stage
	closed bool
}

// NewRun creates a new filter run which starts from init and uses f to filter.
// It returns error if init is not a valid estimate.
func NewRun(f kalman.Filter, init trackfit.InitCond, dir trackfit.Direction) (*Run, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid filter: nil")
	}

	if init == nil {
		return nil, fmt.Errorf("invalid initial condition: nil")
	}

	est, err := estimate.NewBaseWithCov(init.State(), init.Cov())
	if err != nil {
		return nil, err
	}

	return &Run{
		f:     f,
		init:  est,
		dir:   dir,
		stage: kalman.Initialized,
	}, nil
}

// Predict transports the latest estimate to surface using tr.
// Predicting again without an update leaves the previous surface unmeasured.
func (r *Run) Predict(surface int, tr kalman.Transport) (trackfit.Estimate, error) {
	if err := r.open("predict"); err != nil {
		return nil, err
	}

	if r.stage == kalman.Predicted {
		r.skip()
	}

	pred, err := r.f.Predict(r.State(), tr)
	if err != nil {
		return nil, errors.Wrapf(err, "predict surface %d", surface)
	}

	r.steps = append(r.steps, Step{
		Surface:   surface,
		Transport: tr,
		Predicted: pred,
	})
	r.stage = kalman.Predicted

	return pred, nil
}

// Update corrects the latest prediction using measurement m.
// It returns ErrInvalidStage if the latest step is not a prediction.
func (r *Run) Update(m kalman.Measurement) (trackfit.Estimate, error) {
	if err := r.open("update"); err != nil {
		return nil, err
	}

	if r.stage != kalman.Predicted {
		return nil, errors.Wrapf(trackfit.ErrInvalidStage, "update in stage %s", r.stage)
	}

	last := &r.steps[len(r.steps)-1]
	filt, err := r.f.Update(last.Predicted, m)
	if err != nil {
		return nil, errors.Wrapf(err, "update surface %d", last.Surface)
	}

	last.Filtered = filt
	last.Measured = true
	r.stage = kalman.Filtered

	return filt, nil
}

// Skip leaves the latest prediction unmeasured.
// It returns ErrInvalidStage if the latest step is not a prediction.
func (r *Run) Skip() error {
	if err := r.open("skip"); err != nil {
		return err
	}

	if r.stage != kalman.Predicted {
		return errors.Wrapf(trackfit.ErrInvalidStage, "skip in stage %s", r.stage)
	}

	r.skip()

	return nil
}

// Close marks the run as a complete pass.
// No more steps can be added to a closed run.
func (r *Run) Close() error {
	if err := r.open("close"); err != nil {
		return err
	}

	if r.stage == kalman.Predicted {
		r.skip()
	}
	r.closed = true

	return nil
}

// Closed returns true if the run is a complete pass.
func (r *Run) Closed() bool {
	return r.closed
}

// SetSmoothed stores smoothed estimates of all steps and makes the run terminal.
// It returns ErrNotReady if the run is not closed and ErrDimensionMismatch if
// the number of estimates differs from the number of steps.
func (r *Run) SetSmoothed(est []trackfit.Estimate) error {
	if !r.closed {
		return errors.Wrap(trackfit.ErrNotReady, "run is not complete")
	}

	if r.stage == kalman.Smoothed {
		return errors.Wrap(trackfit.ErrInvalidStage, "run already smoothed")
	}

	if len(est) != len(r.steps) {
		return errors.Wrapf(trackfit.ErrDimensionMismatch, "%d smoothed estimates for %d steps", len(est), len(r.steps))
	}

	for i := range r.steps {
		r.steps[i].Smoothed = est[i]
	}
	r.stage = kalman.Smoothed

	return nil
}

// State returns the latest estimate of the run.
// It returns the initial estimate if the run has no steps.
func (r *Run) State() trackfit.Estimate {
	if len(r.steps) == 0 {
		return r.init
	}

	return r.steps[len(r.steps)-1].Estimate()
}

// Init returns the initial estimate.
func (r *Run) Init() trackfit.Estimate {
	return r.init
}

// Stage returns run stage.
func (r *Run) Stage() kalman.Stage {
	return r.stage
}

// Direction returns the direction the run traverses detector surfaces.
func (r *Run) Direction() trackfit.Direction {
	return r.dir
}

// Len returns number of steps.
func (r *Run) Len() int {
	return len(r.steps)
}

// Steps returns run steps in traversal order.
func (r *Run) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Step returns step at surface.
func (r *Run) Step(surface int) (Step, bool) {
	for _, s := range r.steps {
		if s.Surface == surface {
			return s, true
		}
	}
	return Step{}, false
}

func (r *Run) open(op string) error {
	if r.stage == kalman.Smoothed {
		return errors.Wrapf(trackfit.ErrInvalidStage, "%s on smoothed run", op)
	}

	if r.closed {
		return errors.Wrapf(trackfit.ErrInvalidStage, "%s on closed run", op)
	}

	return nil
}

func (r *Run) skip() {
	last := &r.steps[len(r.steps)-1]
	last.Filtered = last.Predicted
	r.stage = kalman.Filtered
}
