package estimate

import (
	"testing"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBase(state)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(0.0, b.Cov().At(0, 0))

	b, err = NewBase(nil)
	assert.Nil(b)
	assert.Error(err)

	b, err = NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(state, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(b)
	assert.True(errors.Is(err, trackfit.ErrDimensionMismatch))
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(2, b.Dim())

	s := b.Val()
	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), s.AtVec(i))
	}

	c := b.Cov()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.Equal(cov.At(i, j), c.At(i, j))
		}
	}

	sd, err := b.StdDev(1)
	assert.NoError(err)
	assert.Equal(2.0, sd)

	_, err = b.StdDev(2)
	assert.True(errors.Is(err, trackfit.ErrOutOfRange))
}

func TestImmutable(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NoError(err)

	// mutating inputs and outputs must not leak into the estimate
	state.SetVec(0, 100)
	cov.SetSym(0, 0, 100)
	b.Val().(*mat.VecDense).SetVec(1, 100)
	b.Cov().(*mat.SymDense).SetSym(1, 1, 100)

	assert.Equal(1.0, b.Val().AtVec(0))
	assert.Equal(2.0, b.Val().AtVec(1))
	assert.Equal(1.0, b.Cov().At(0, 0))
	assert.Equal(1.0, b.Cov().At(1, 1))
}
