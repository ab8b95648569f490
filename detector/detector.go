package detector

import (
	"fmt"
	"iter"
	"math"

	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/noise"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Hit is a measurement recorded on a detector surface.
// Its covariance is the surface resolution plus the smearing noise covariance.
type Hit struct {
	// Surface is the index of the surface in the detector
	Surface int
	// Value is the local measurement
	Value *mat.VecDense
	// Cov is the measurement covariance
	Cov *mat.SymDense
	// Strip is the index of the fired strip or -1 for unsegmented surfaces
	Strip int
}

// Measurement returns the measured local coordinate.
func (h Hit) Measurement() float64 {
	return h.Value.AtVec(0)
}

// Detector is an ordered set of surfaces.
type Detector struct {
	surfaces []trackfit.Surface
	smear    trackfit.Noise
	// hits are recorded hits per surface
	hits map[int][]Hit
	// strips counts hits per surface strip
	strips map[int]map[int]int
}

// New creates new Detector from the given surfaces.
// smear adds noise to every measurement; nil smear measures with zero noise.
// It returns error if no surfaces are given or smear is not one dimensional.
func New(smear trackfit.Noise, surfaces ...trackfit.Surface) (*Detector, error) {
	if len(surfaces) == 0 {
		return nil, fmt.Errorf("invalid number of surfaces: %d", len(surfaces))
	}

	for i, s := range surfaces {
		if s == nil {
			return nil, fmt.Errorf("invalid surface %d: nil", i)
		}
	}

	if smear == nil {
		z, err := noise.NewZero(1)
		if err != nil {
			return nil, err
		}
		smear = z
	}

	if n := len(smear.Mean()); n != 1 {
		return nil, errors.Wrapf(trackfit.ErrDimensionMismatch, "smearing dimension: %d", n)
	}

	return &Detector{
		surfaces: append([]trackfit.Surface(nil), surfaces...),
		smear:    smear,
		hits:     make(map[int][]Hit),
		strips:   make(map[int]map[int]int),
	}, nil
}

// NewLayered creates a detector of layers strip planes orthogonal to x, evenly spread
// over length starting at x. Every layer is centred at y, has the given height
// and is segmented into strips.
func NewLayered(x, y, height, length float64, layers, strips int, smear trackfit.Noise) (*Detector, error) {
	if layers <= 0 {
		return nil, fmt.Errorf("invalid number of layers: %d", layers)
	}

	if length < 0 {
		return nil, fmt.Errorf("invalid detector length: %g", length)
	}

	step := 0.0
	if layers > 1 {
		step = length / float64(layers-1)
	}

	surfaces := make([]trackfit.Surface, layers)
	for i := range surfaces {
		p, err := NewStripPlane(x+float64(i)*step, y, height, strips)
		if err != nil {
			return nil, err
		}
		surfaces[i] = p
	}

	return New(smear, surfaces...)
}

// Len returns number of surfaces.
func (d *Detector) Len() int {
	return len(d.surfaces)
}

// Smear returns the noise smearing the measurements.
func (d *Detector) Smear() trackfit.Noise {
	return d.smear
}

// Surface returns i-th surface.
func (d *Detector) Surface(i int) (trackfit.Surface, error) {
	if i < 0 || i >= len(d.surfaces) {
		return nil, errors.Wrapf(trackfit.ErrOutOfRange, "surface %d of %d", i, len(d.surfaces))
	}

	return d.surfaces[i], nil
}

// Surfaces iterates over surface indices and surfaces in the traversal order of dir.
func (d *Detector) Surfaces(dir trackfit.Direction) iter.Seq2[int, trackfit.Surface] {
	return func(yield func(int, trackfit.Surface) bool) {
		n := len(d.surfaces)
		for k := range n {
			i := k
			if dir == trackfit.Backward {
				i = n - 1 - k
			}
			if !yield(i, d.surfaces[i]) {
				return
			}
		}
	}
}

// Measure returns hits left by track t on the detector surfaces in detector order.
// Surfaces the track does not cross are skipped.
// Smearing noise is reset on every call so measuring the same track yields the same hits.
func (d *Detector) Measure(t trackfit.Track) ([]Hit, error) {
	if err := d.smear.Reset(); err != nil {
		return nil, err
	}

	return d.measure(t)
}

// Record measures all tracks and accumulates their hits in the detector.
// Smearing noise is reset once before the first track.
func (d *Detector) Record(tracks iter.Seq[trackfit.Track]) error {
	if err := d.smear.Reset(); err != nil {
		return err
	}

	for t := range tracks {
		hits, err := d.measure(t)
		if err != nil {
			return err
		}

		for _, h := range hits {
			d.hits[h.Surface] = append(d.hits[h.Surface], h)
			if h.Strip < 0 {
				continue
			}
			if d.strips[h.Surface] == nil {
				d.strips[h.Surface] = make(map[int]int)
			}
			d.strips[h.Surface][h.Strip]++
		}
	}

	return nil
}

// Hits returns hits recorded on surface i.
func (d *Detector) Hits(i int) []Hit {
	return append([]Hit(nil), d.hits[i]...)
}

// Multiplicity returns number of recorded hits in strip of surface i.
func (d *Detector) Multiplicity(i, strip int) int {
	return d.strips[i][strip]
}

// Clear removes all recorded hits.
func (d *Detector) Clear() {
	d.hits = make(map[int][]Hit)
	d.strips = make(map[int]map[int]int)
}

func (d *Detector) measure(t trackfit.Track) ([]Hit, error) {
	var hits []Hit

	for i, s := range d.surfaces {
		m, err := s.Intersect(t)
		if err != nil {
			if errors.Is(err, trackfit.ErrNoIntersection) {
				continue
			}
			return nil, errors.Wrapf(err, "surface %d", i)
		}

		u := m.AtVec(0) + d.smear.Sample().AtVec(0)

		strip := -1
		if p, ok := s.(*Plane); ok && p.Strips() > 0 {
			j, ok := p.Strip(u)
			if !ok {
				// smearing moved the hit off the plane
				continue
			}
			if u, err = p.StripCentre(j); err != nil {
				return nil, err
			}
			strip = j
		}

		if math.IsNaN(u) || math.IsInf(u, 0) {
			continue
		}

		cov := mat.NewSymDense(1, nil)
		cov.CopySym(s.Noise())
		cov.AddSym(cov, d.smear.Cov())

		hits = append(hits, Hit{
			Surface: i,
			Value:   mat.NewVecDense(1, []float64{u}),
			Cov:     cov,
			Strip:   strip,
		})
	}

	return hits, nil
}
