package smooth

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
)

// Smoother smooths a complete filter run
type Smoother interface {
	// Smooth returns smoothed estimates of all run steps in traversal order
	Smooth(r *kf.Run) ([]trackfit.Estimate, error)
}
