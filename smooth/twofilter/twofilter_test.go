package twofilter

import (
	"testing"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/kalman"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/sim"
	"github.com/milosgajdos/go-trackfit/smooth/rts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var meas = []float64{1.1, 2.9, 5.2, 6.8, 9.1, 11.0}

// fit runs the filter over surfaces at unit distance measuring position with
// unit variance. Backward runs start at the last surface.
func fit(t *testing.T, dir trackfit.Direction) *kf.Run {
	r, err := kf.NewRun(kf.New(), sim.NewDiffuseInitCond(2, 1e6), dir)
	if err != nil {
		t.Fatal(err)
	}

	n := len(meas)
	for k := range n {
		i, f := k, mat.NewDense(2, 2, []float64{1, 1, 0, 1})
		if dir == trackfit.Backward {
			i, f = n-1-k, mat.NewDense(2, 2, []float64{1, -1, 0, 1})
		}
		if k == 0 {
			f = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		}

		if _, err := r.Predict(i, kalman.Transport{F: f}); err != nil {
			t.Fatal(err)
		}

		m := kalman.Measurement{
			M: mat.NewVecDense(1, []float64{meas[i]}),
			H: mat.NewDense(1, 2, []float64{1, 0}),
			R: mat.NewSymDense(1, []float64{1}),
		}
		if _, err := r.Update(m); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	return r
}

func TestCombine(t *testing.T) {
	assert := assert.New(t)

	fwd, bwd := fit(t, trackfit.Forward), fit(t, trackfit.Backward)

	sx, err := Combine(fwd, bwd)
	assert.NoError(err)
	assert.Len(sx, len(meas))

	// without process noise both smoothers agree
	ref := fit(t, trackfit.Forward)
	rx, err := rts.New().Smooth(ref)
	assert.NoError(err)

	for i := range sx {
		assert.True(mat.EqualApprox(rx[i].Val(), sx[i].Val(), 1e-4))
		assert.True(mat.EqualApprox(rx[i].Cov(), sx[i].Cov(), 1e-4))

		filt := fwd.Steps()[i].Filtered.Cov()
		assert.LessOrEqual(mat.Trace(sx[i].Cov()), mat.Trace(filt)+1e-9)
	}
}

func TestCombineNotReady(t *testing.T) {
	assert := assert.New(t)

	fwd := fit(t, trackfit.Forward)
	open, err := kf.NewRun(kf.New(), sim.NewDiffuseInitCond(2, 1), trackfit.Backward)
	assert.NoError(err)

	sx, err := Combine(fwd, open)
	assert.Nil(sx)
	assert.ErrorIs(err, trackfit.ErrNotReady)

	sx, err = Combine(fwd, fwd)
	assert.Nil(sx)
	assert.ErrorIs(err, trackfit.ErrNotReady)

	sx, err = Combine(nil, fwd)
	assert.Nil(sx)
	assert.ErrorIs(err, trackfit.ErrNotReady)
}
