package fit

import (
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFinder(t *testing.T) {
	assert := assert.New(t)

	det, err := detector.NewLayered(1, 0, 0.5, 8, 10, 250, nil)
	require.NoError(t, err)

	f, err := NewFinder(det)
	assert.NoError(err)
	assert.NotNil(f)

	f, err = NewFinder(nil)
	assert.Nil(f)
	assert.Error(err)

	f, err = NewFinder(det, WithGate(0))
	assert.Nil(f)
	assert.Error(err)

	c, err := detector.NewCylinder(0, 0, 1, 0.1)
	require.NoError(t, err)
	cyl, err := detector.New(nil, c)
	require.NoError(t, err)
	f, err = NewFinder(cyl)
	assert.Nil(f)
	assert.Error(err)
}

func TestFinderFind(t *testing.T) {
	assert := assert.New(t)

	det, err := detector.NewLayered(1, 0, 0.5, 9, 10, 250, nil)
	require.NoError(t, err)

	lines := []trackfit.Track{
		track.NewLine(-0.02, 0.01),
		track.NewLine(0.0, 0.01),
		track.NewLine(0.02, 0.01),
		// leaves the detector after the first plane
		track.NewLine(0.2, -0.05),
	}
	require.NoError(t, det.Record(slices.Values(lines)))

	// strip quantization errors are not gaussian so the gate is wide
	f, err := NewFinder(det, WithGate(10))
	require.NoError(t, err)

	cands, err := f.Find()
	require.NoError(t, err)
	require.Len(t, cands, 3)

	var slopes, intercepts []float64
	for _, c := range cands {
		assert.Len(c.Hits(), 10)
		assert.True(c.Run().Closed())
		assert.Equal(trackfit.Backward, c.Run().Direction())

		l, err := c.Line()
		require.NoError(t, err)
		slopes = append(slopes, l.Slope())
		intercepts = append(intercepts, l.Intercept())
	}
	sort.Float64s(slopes)
	sort.Float64s(intercepts)

	opt := cmpopts.EquateApprox(0, 3e-3)
	if diff := cmp.Diff([]float64{-0.02, 0, 0.02}, slopes, opt); diff != "" {
		t.Errorf("unexpected slopes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0.01, 0.01, 0.01}, intercepts, opt); diff != "" {
		t.Errorf("unexpected intercepts (-want +got):\n%s", diff)
	}

	pts, err := f.Propagate(cands[0])
	require.NoError(t, err)
	assert.Len(pts, 10)
	l, err := cands[0].Line()
	require.NoError(t, err)
	for i, p := range pts {
		assert.InDelta(float64(1+i), p.X, 1e-12)
		assert.InDelta(l.Evaluate(p.X), p.Y, 1e-12)
	}

	// keeping short candidates
	f, err = NewFinder(det, WithGate(10), WithMinHits(1))
	require.NoError(t, err)
	cands, err = f.Find()
	require.NoError(t, err)
	assert.Len(cands, 4)
}

func TestFinderEmpty(t *testing.T) {
	assert := assert.New(t)

	det, err := detector.NewLayered(1, 0, 0.5, 8, 10, 25, nil)
	require.NoError(t, err)

	f, err := NewFinder(det)
	require.NoError(t, err)

	cands, err := f.Find()
	assert.NoError(err)
	assert.Empty(cands)
}
