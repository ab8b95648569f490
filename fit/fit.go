// Package fit fits tracks to detector hits with a linear Kalman filter.
package fit

import (
	"fmt"
	"io"
	"log/slog"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/smooth/rts"
	"github.com/milosgajdos/go-trackfit/smooth/twofilter"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
)

// SurfaceError is returned when a fit is aborted at a detector surface.
type SurfaceError struct {
	// Surface is the index of the surface
	Surface int
	// Direction is the fit direction
	Direction trackfit.Direction
	// Err is the underlying error
	Err error
}

// Error implements error interface.
func (e *SurfaceError) Error() string {
	return fmt.Sprintf("%s fit aborted at surface %d: %v", e.Direction, e.Surface, e.Err)
}

// Unwrap returns the underlying error.
func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// Result holds the filter runs of a smoothed fit and the smoothed estimates.
type Result struct {
	// Forward is the forward filter run
	Forward *kf.Run
	// Backward is the backward filter run
	Backward *kf.Run
	// RTS are Rauch-Tung-Striebel smoothed estimates in detector order
	RTS []trackfit.Estimate
	// TwoFilter are two-filter smoothed estimates in detector order
	TwoFilter []trackfit.Estimate
}

// Option configures Fitter.
type Option func(*Fitter)

// WithLogger sets Fitter logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fitter) {
		f.logger = l
	}
}

// WithFilter sets the filter Fitter uses.
func WithFilter(k kalman.Filter) Option {
	return func(f *Fitter) {
		f.filter = k
	}
}

// Fitter fits tracks crossing a detector.
type Fitter struct {
	filter kalman.Filter
	logger *slog.Logger
}

// New creates new Fitter and returns it.
// By default Fitter uses kf.KF and discards logs.
func New(opts ...Option) *Fitter {
	f := &Fitter{
		filter: kf.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit measures track t with det and fits the hits traversing det in direction dir.
func (f *Fitter) Fit(init trackfit.InitCond, t trackfit.Track, det *detector.Detector, dir trackfit.Direction) (*kf.Run, error) {
	if t == nil || det == nil {
		return nil, fmt.Errorf("invalid fit input: track %v, detector %v", t, det)
	}

	hits, err := det.Measure(t)
	if err != nil {
		return nil, err
	}

	return f.FitHits(init, t, hits, det, dir)
}

// FitHits fits hits traversing det in direction dir using ref as the reference trajectory.
// init is the state at the reference surface of ref when fitting forward and at the
// last detector surface when fitting backward.
// Surfaces without a hit are predicted only. If the reference trajectory does not reach
// a surface, the fit is aborted and the partial run is returned along with *SurfaceError.
func (f *Fitter) FitHits(init trackfit.InitCond, ref trackfit.Track, hits []detector.Hit, det *detector.Detector, dir trackfit.Direction) (*kf.Run, error) {
	if ref == nil || det == nil {
		return nil, fmt.Errorf("invalid fit input: track %v, detector %v", ref, det)
	}

	run, err := kf.NewRun(f.filter, init, dir)
	if err != nil {
		return nil, err
	}

	if n := ref.Params().Len(); n != init.State().Len() {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "track parameters %d, initial state %d", n, init.State().Len())
	}

	byS := make(map[int]detector.Hit, len(hits))
	for _, h := range hits {
		byS[h.Surface] = h
	}

	if dir == trackfit.Backward {
		last := det.Len() - 1
		s, err := det.Surface(last)
		if err != nil {
			return nil, err
		}
		if ref, _, err = ref.Propagate(s, trackfit.Forward); err != nil {
			return run, f.abort(run, last, err)
		}
	}

	n := init.State().Len()
	for i, s := range det.Surfaces(dir) {
		tr, next, err := transport(ref, s, dir)
		if err != nil {
			return run, f.abort(run, i, err)
		}

		pred, err := run.Predict(i, tr)
		if err != nil {
			return run, f.abort(run, i, err)
		}

		h, ok := byS[i]
		if !ok {
			if err := run.Skip(); err != nil {
				return run, f.abort(run, i, err)
			}
			f.logger.Debug("surface without hit", "surface", i, "direction", dir)
			ref = next
			continue
		}

		m, err := measurement(s, n, h, pred.Val().AtVec(0))
		if err != nil {
			return run, f.abort(run, i, err)
		}

		est, err := run.Update(m)
		if err != nil {
			return run, f.abort(run, i, err)
		}

		f.logger.Debug("filtered", "surface", i, "direction", dir, "state", est.Val())
		ref = next
	}

	if err := run.Close(); err != nil {
		return run, err
	}

	return run, nil
}

// Smooth measures track t with det once, fits the hits forward and backward in parallel
// and smooths the fits. fwdInit is the state at the reference surface of t and bwdInit
// the state at the last detector surface.
// If either fit fails, Result holds the partial runs.
func (f *Fitter) Smooth(fwdInit, bwdInit trackfit.InitCond, t trackfit.Track, det *detector.Detector) (*Result, error) {
	if t == nil || det == nil {
		return nil, fmt.Errorf("invalid smoothing input: track %v, detector %v", t, det)
	}

	hits, err := det.Measure(t)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var fwdErr, bwdErr error

	var wg conc.WaitGroup
	wg.Go(func() {
		res.Forward, fwdErr = f.FitHits(fwdInit, t, hits, det, trackfit.Forward)
	})
	wg.Go(func() {
		res.Backward, bwdErr = f.FitHits(bwdInit, t, hits, det, trackfit.Backward)
	})
	wg.Wait()

	if fwdErr != nil {
		return res, fwdErr
	}

	if bwdErr != nil {
		return res, bwdErr
	}

	if res.TwoFilter, err = twofilter.Combine(res.Forward, res.Backward); err != nil {
		return res, err
	}

	if res.RTS, err = rts.New().Smooth(res.Forward); err != nil {
		return res, err
	}

	return res, nil
}

func (f *Fitter) abort(run *kf.Run, surface int, err error) error {
	f.logger.Warn("fit aborted", "surface", surface, "direction", run.Direction(), "steps", run.Len(), "error", err)

	return &SurfaceError{
		Surface:   surface,
		Direction: run.Direction(),
		Err:       err,
	}
}
