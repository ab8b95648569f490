package detector_test

import (
	"os"
	"slices"
	"testing"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/noise"
	"github.com/milosgajdos/go-trackfit/track"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	line  *track.Line
	smear *noise.Gaussian
)

func setup() {
	line = track.NewLine(0.1, 0.05)
	smear, _ = noise.NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{0.01}), 42)
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	p, err := detector.NewPlane(1, 0, 1, 0.1)
	assert.NoError(err)

	d, err := detector.New(nil, p)
	assert.NoError(err)
	assert.Equal(1, d.Len())
	assert.IsType(&noise.Zero{}, d.Smear())

	// zero noise leaves hits and their covariance untouched
	hits, err := d.Measure(line)
	assert.NoError(err)
	assert.Len(hits, 1)
	exp, err := p.Intersect(line)
	assert.NoError(err)
	assert.Equal(exp.AtVec(0), hits[0].Measurement())
	assert.Equal(p.Noise().At(0, 0), hits[0].Cov.At(0, 0))

	d, err = detector.New(nil)
	assert.Nil(d)
	assert.Error(err)

	d, err = detector.New(nil, p, nil)
	assert.Nil(d)
	assert.Error(err)

	bad, err := noise.NewZero(2)
	assert.NoError(err)
	d, err = detector.New(bad, p)
	assert.Nil(d)
	assert.ErrorIs(err, trackfit.ErrDimensionMismatch)
}

func TestNewLayered(t *testing.T) {
	assert := assert.New(t)

	d, err := detector.NewLayered(1, 0, 2, 9, 10, 100, nil)
	assert.NoError(err)
	assert.Equal(10, d.Len())

	for i := range d.Len() {
		s, err := d.Surface(i)
		assert.NoError(err)
		p, ok := s.(*detector.Plane)
		assert.True(ok)
		assert.Equal(float64(1+i), p.Offset())
		assert.Equal(100, p.Strips())
	}

	_, err = d.Surface(10)
	assert.ErrorIs(err, trackfit.ErrOutOfRange)

	d, err = detector.NewLayered(1, 0, 2, 9, 0, 100, nil)
	assert.Nil(d)
	assert.Error(err)
}

func TestSurfaces(t *testing.T) {
	assert := assert.New(t)

	d, err := detector.NewLayered(0, 0, 2, 3, 4, 10, nil)
	assert.NoError(err)

	var fwd, bwd []int
	for i := range d.Surfaces(trackfit.Forward) {
		fwd = append(fwd, i)
	}
	for i := range d.Surfaces(trackfit.Backward) {
		bwd = append(bwd, i)
	}
	assert.Equal([]int{0, 1, 2, 3}, fwd)
	assert.Equal([]int{3, 2, 1, 0}, bwd)

	var some []int
	for i := range d.Surfaces(trackfit.Forward) {
		if i == 2 {
			break
		}
		some = append(some, i)
	}
	assert.Equal([]int{0, 1}, some)
}

func TestIntersect(t *testing.T) {
	assert := assert.New(t)

	p, err := detector.NewPlane(1, 0, 2, 0)
	assert.NoError(err)

	m, err := p.Intersect(line)
	assert.NoError(err)
	assert.InDelta(0.25, m.AtVec(0), 1e-12)

	b, err := detector.NewBoundedPlane(1, 0, 20, -1, 1, 0)
	assert.NoError(err)
	m, err = b.Intersect(line)
	assert.Nil(m)
	assert.ErrorIs(err, trackfit.ErrNoIntersection)

	c, err := detector.NewCylinder(0, 0, 1, 0)
	assert.NoError(err)
	m, err = c.Intersect(track.NewLine(0, 0))
	assert.NoError(err)
	// the line crosses x = 1 first when travelling forward
	assert.InDelta(0.0, m.AtVec(0), 1e-12)

	m, err = c.Intersect(track.NewLine(0, 5))
	assert.Nil(m)
	assert.ErrorIs(err, trackfit.ErrNoIntersection)
}

func TestMeasure(t *testing.T) {
	assert := assert.New(t)

	planes := make([]trackfit.Surface, 5)
	for i := range planes {
		p, err := detector.NewPlane(1, 0, float64(i+1), 0.1)
		assert.NoError(err)
		planes[i] = p
	}

	d, err := detector.New(nil, planes...)
	assert.NoError(err)

	hits, err := d.Measure(line)
	assert.NoError(err)
	assert.Len(hits, 5)
	for i, h := range hits {
		assert.Equal(i, h.Surface)
		assert.Equal(-1, h.Strip)
		assert.InDelta(line.Evaluate(float64(i+1)), h.Measurement(), 1e-12)
		assert.InDelta(0.01, h.Cov.At(0, 0), 1e-12)
	}

	d, err = detector.New(smear, planes...)
	assert.NoError(err)

	first, err := d.Measure(line)
	assert.NoError(err)
	second, err := d.Measure(line)
	assert.NoError(err)
	assert.Len(first, 5)
	for i := range first {
		assert.Equal(first[i].Measurement(), second[i].Measurement())
		assert.NotEqual(line.Evaluate(float64(i+1)), first[i].Measurement())
		assert.InDelta(0.02, first[i].Cov.At(0, 0), 1e-12)
	}
}

func TestMeasureStrips(t *testing.T) {
	assert := assert.New(t)

	d, err := detector.NewLayered(1, 0, 2, 3, 4, 20, nil)
	assert.NoError(err)

	hits, err := d.Measure(line)
	assert.NoError(err)
	assert.Len(hits, 4)
	for i, h := range hits {
		s, err := d.Surface(i)
		assert.NoError(err)
		p := s.(*detector.Plane)
		strip, ok := p.Strip(line.Evaluate(float64(i + 1)))
		assert.True(ok)
		assert.Equal(strip, h.Strip)
		c, err := p.StripCentre(strip)
		assert.NoError(err)
		assert.Equal(c, h.Measurement())
	}

	// leaves the detector after the second layer
	steep := track.NewLine(0.6, 0)
	hits, err = d.Measure(steep)
	assert.NoError(err)
	assert.Len(hits, 1)
}

func TestRecord(t *testing.T) {
	assert := assert.New(t)

	d, err := detector.NewLayered(1, 0, 2, 3, 4, 20, nil)
	assert.NoError(err)

	tracks := []trackfit.Track{line, line, track.NewLine(-0.1, -0.5)}
	err = d.Record(slices.Values(tracks))
	assert.NoError(err)

	for i := range d.Len() {
		assert.Len(d.Hits(i), 3)
		h := d.Hits(i)[0]
		assert.Equal(2, d.Multiplicity(i, h.Strip))
	}

	d.Clear()
	for i := range d.Len() {
		assert.Empty(d.Hits(i))
	}
	assert.Equal(0, d.Multiplicity(0, 0))
}
