package track

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func params(t trackfit.Track) []float64 {
	return mat.Col(nil, 0, t.Params())
}

func TestNewLine(t *testing.T) {
	assert := assert.New(t)

	l := NewLine(2, 1)
	assert.Equal(2.0, l.Slope())
	assert.Equal(1.0, l.Intercept())
	assert.Equal(7.0, l.Evaluate(3))
	assert.Equal([]float64{1, 2}, params(l))

	x, y := l.Position()
	assert.Equal(0.0, x)
	assert.Equal(1.0, y)

	p, err := detector.NewPlane(1, 0, 2, 0)
	assert.NoError(err)
	la, err := NewLineAt(p, 5, 2)
	assert.NoError(err)
	assert.Equal(1.0, la.Intercept())

	la, err = NewLineAt(nil, 5, 2)
	assert.Nil(la)
	assert.Error(err)
}

func TestLinePropagate(t *testing.T) {
	assert := assert.New(t)

	l := NewLine(0.5, 1)
	p, err := detector.NewPlane(1, 0, 4, 0)
	assert.NoError(err)

	next, jac, err := l.Propagate(p, trackfit.Forward)
	assert.NoError(err)
	assert.Equal(p, next.Surface())
	if diff := cmp.Diff([]float64{3, 0.5}, params(next), approx); diff != "" {
		t.Errorf("unexpected params (-want +got):\n%s", diff)
	}
	assert.True(mat.EqualApprox(mat.NewDense(2, 2, []float64{1, 4, 0, 1}), jac, 1e-12))

	// the source track is not modified
	assert.Equal([]float64{1, 0.5}, params(l))

	back, jac, err := next.Propagate(l.Surface(), trackfit.Backward)
	assert.NoError(err)
	if diff := cmp.Diff(params(l), params(back), approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.True(mat.EqualApprox(mat.NewDense(2, 2, []float64{1, -4, 0, 1}), jac, 1e-12))

	// parallel plane
	par, err := detector.NewPlane(0.5, -1, 3, 0)
	assert.NoError(err)
	next, jac, err = l.Propagate(par, trackfit.Forward)
	assert.Nil(next)
	assert.Nil(jac)
	assert.ErrorIs(err, trackfit.ErrNoIntersection)
}

func TestLinePropagateDeterministic(t *testing.T) {
	assert := assert.New(t)

	l := NewLine(0.3, -0.2)
	c, err := detector.NewCylinder(0, 0, 3, 0)
	assert.NoError(err)

	a, ja, err := l.Propagate(c, trackfit.Forward)
	assert.NoError(err)
	b, jb, err := l.Propagate(c, trackfit.Forward)
	assert.NoError(err)
	assert.Equal(params(a), params(b))
	assert.True(mat.Equal(ja, jb))
}

func TestLinePlaneJacobian(t *testing.T) {
	assert := assert.New(t)

	from, err := detector.NewPlane(1, 0.2, 1, 0)
	assert.NoError(err)
	to, err := detector.NewPlane(1, -0.3, 5, 0)
	assert.NoError(err)

	l, err := NewLineAt(from, 0.4, 0.7)
	assert.NoError(err)

	_, jac, err := l.Propagate(to, trackfit.Forward)
	assert.NoError(err)

	dx, err := l.cross(to, trackfit.Forward)
	assert.NoError(err)

	num, err := jacobian(func(p []float64) ([]float64, error) {
		return l.transport(to, p[0], p[1], dx)
	}, []float64{0.4, 0.7})
	assert.NoError(err)
	assert.True(mat.EqualApprox(num, jac, 1e-6))
}

func TestLineCylinder(t *testing.T) {
	assert := assert.New(t)

	l := NewLine(0, 0.5)
	c, err := detector.NewCylinder(0, 0, 1, 0)
	assert.NoError(err)

	next, jac, err := l.Propagate(c, trackfit.Forward)
	assert.NoError(err)
	x, y := next.Position()
	assert.InDelta(0.75, x*x, 1e-12)
	assert.InDelta(0.5, y, 1e-12)
	assert.Greater(x, 0.0)

	back, _, err := next.Propagate(l.Surface(), trackfit.Backward)
	assert.NoError(err)
	if diff := cmp.Diff(params(l), params(back), approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	r, cols := jac.Dims()
	assert.Equal(2, r)
	assert.Equal(2, cols)
	assert.InDelta(1.0, jac.At(1, 1), 1e-6)
	assert.InDelta(0.0, jac.At(1, 0), 1e-6)

	// travelling backward reaches the other side first
	next, _, err = l.Propagate(c, trackfit.Backward)
	assert.NoError(err)
	x, _ = next.Position()
	assert.Less(x, 0.0)
}

func TestLineProcessNoise(t *testing.T) {
	assert := assert.New(t)

	p, err := detector.NewPlane(1, 0, 2, 0)
	assert.NoError(err)

	l := NewLine(1, 0)
	q, err := l.ProcessNoise(p, trackfit.Forward)
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewSymDense(2, nil), q))

	q, err = l.WithScattering(0.5).ProcessNoise(p, trackfit.Forward)
	assert.NoError(err)
	assert.InDelta(0.5*8/3, q.At(0, 0), 1e-12)
	assert.InDelta(0.5*2, q.At(0, 1), 1e-12)
	assert.InDelta(0.5*2, q.At(1, 1), 1e-12)

	b, err := detector.NewBoundedPlane(1, 0, 2, 10, 11, 0)
	assert.NoError(err)
	q, err = l.ProcessNoise(b, trackfit.Forward)
	assert.Nil(q)
	assert.ErrorIs(err, trackfit.ErrNoIntersection)
}

func TestChoose(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		ss  []float64
		dir trackfit.Direction
		s   float64
		ok  bool
	}{
		{nil, trackfit.Forward, 0, false},
		{[]float64{-1, 2, 3}, trackfit.Forward, 2, true},
		{[]float64{-1, 2, 3}, trackfit.Backward, -1, true},
		{[]float64{-3, -1}, trackfit.Forward, -1, true},
		{[]float64{0, 1}, trackfit.Backward, 0, true},
		{[]float64{5, 1}, trackfit.Backward, 1, true},
	} {
		s, _, ok := choose(test.ss, test.dir)
		assert.Equal(test.ok, ok)
		assert.Equal(test.s, s)
	}
}

func TestLineCylinderSeam(t *testing.T) {
	assert := assert.New(t)

	c, err := detector.NewCylinder(0, 0, 1, 0)
	assert.NoError(err)

	// travelling backward the line crosses the cylinder at (-1, 0)
	next, jac, err := NewLine(0, 0).Propagate(c, trackfit.Backward)
	assert.NoError(err)
	assert.InDelta(math.Pi, math.Abs(next.Params().AtVec(0)), 1e-9)

	want := mat.NewDense(2, 2, []float64{
		-1, 1,
		0, 1,
	})
	assert.True(mat.EqualApprox(want, jac, 1e-6), "jacobian\n%v", mat.Formatted(jac))
}
