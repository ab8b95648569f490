package kf

import (
	"testing"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewRun(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRun(New(), ic, trackfit.Forward)
	assert.NoError(err)
	assert.Equal(kalman.Initialized, r.Stage())
	assert.Equal(trackfit.Forward, r.Direction())
	assert.Equal(0, r.Len())

	r, err = NewRun(nil, ic, trackfit.Forward)
	assert.Nil(r)
	assert.Error(err)

	r, err = NewRun(New(), nil, trackfit.Forward)
	assert.Nil(r)
	assert.Error(err)
}

func TestRunZeroSteps(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRun(New(), ic, trackfit.Backward)
	assert.NoError(err)
	assert.NoError(r.Close())
	assert.True(r.Closed())
	assert.True(mat.Equal(ic.State(), r.State().Val()))
	assert.True(mat.Equal(ic.Cov(), r.State().Cov()))
	assert.Empty(r.Steps())
}

func TestRunStages(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRun(New(), ic, trackfit.Forward)
	assert.NoError(err)

	// update requires prediction
	filt, err := r.Update(meas)
	assert.Nil(filt)
	assert.ErrorIs(err, trackfit.ErrInvalidStage)
	assert.ErrorIs(r.Skip(), trackfit.ErrInvalidStage)

	pred, err := r.Predict(0, tr)
	assert.NoError(err)
	assert.Equal(kalman.Predicted, r.Stage())
	assert.True(mat.Equal(pred.Val(), r.State().Val()))

	// predict after predict leaves the previous surface unmeasured
	_, err = r.Predict(1, tr)
	assert.NoError(err)

	filt, err = r.Update(meas)
	assert.NoError(err)
	assert.Equal(kalman.Filtered, r.Stage())
	assert.True(mat.Equal(filt.Val(), r.State().Val()))

	filt, err = r.Update(meas)
	assert.Nil(filt)
	assert.ErrorIs(err, trackfit.ErrInvalidStage)

	_, err = r.Predict(2, tr)
	assert.NoError(err)
	assert.NoError(r.Skip())

	steps := r.Steps()
	assert.Len(steps, 3)
	for i, s := range steps {
		assert.Equal(i, s.Surface)
		assert.NotNil(s.Filtered)
	}
	assert.False(steps[0].Measured)
	assert.True(steps[1].Measured)
	assert.False(steps[2].Measured)
	assert.Equal(steps[0].Predicted, steps[0].Filtered)

	s, ok := r.Step(1)
	assert.True(ok)
	assert.Equal(filt, s.Filtered)
	_, ok = r.Step(5)
	assert.False(ok)

	assert.NoError(r.Close())
	_, err = r.Predict(3, tr)
	assert.ErrorIs(err, trackfit.ErrInvalidStage)
	assert.ErrorIs(r.Close(), trackfit.ErrInvalidStage)
}

func TestRunSetSmoothed(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRun(New(), ic, trackfit.Forward)
	assert.NoError(err)

	pred, err := r.Predict(0, tr)
	assert.NoError(err)

	err = r.SetSmoothed([]trackfit.Estimate{pred})
	assert.ErrorIs(err, trackfit.ErrNotReady)

	assert.NoError(r.Close())

	err = r.SetSmoothed(nil)
	assert.ErrorIs(err, trackfit.ErrDimensionMismatch)

	err = r.SetSmoothed([]trackfit.Estimate{est})
	assert.NoError(err)
	assert.Equal(kalman.Smoothed, r.Stage())
	assert.Equal(est, r.State())

	_, err = r.Predict(1, tr)
	assert.ErrorIs(err, trackfit.ErrInvalidStage)
	assert.ErrorIs(r.SetSmoothed([]trackfit.Estimate{est}), trackfit.ErrInvalidStage)
}

func TestRunPredictError(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRun(New(), ic, trackfit.Forward)
	assert.NoError(err)

	pred, err := r.Predict(0, kalman.Transport{F: mat.NewDense(3, 3, nil)})
	assert.Nil(pred)
	assert.ErrorIs(err, trackfit.ErrDimensionMismatch)
	assert.Equal(0, r.Len())
	assert.Equal(kalman.Initialized, r.Stage())
}
