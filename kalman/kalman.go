package kalman

import (
	trackfit "github.com/milosgajdos/go-trackfit"
	"gonum.org/v1/gonum/mat"
)

// Transport describes linear propagation of the state between two surfaces.
type Transport struct {
	// F is state transport matrix
	F mat.Matrix
	// Q is process noise covariance; nil means no process noise
	Q mat.Symmetric
	// Drift is added to the transported state; nil means no drift
	Drift mat.Vector
}

// Measurement describes a measurement of the state.
type Measurement struct {
	// M is measurement vector
	M mat.Vector
	// H is measurement matrix which projects the state to measurement space
	H mat.Matrix
	// R is measurement covariance
	R mat.Symmetric
}

// Stage is the stage of a filter run.
type Stage int

const (
	// Initialized run holds initial estimate only
	Initialized Stage = iota
	// Predicted run holds a prediction which has not been filtered yet
	Predicted
	// Filtered run holds a filtered estimate
	Filtered
	// Smoothed run holds smoothed estimates
	Smoothed
)

// String implements the Stringer interface.
func (s Stage) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Predicted:
		return "predicted"
	case Filtered:
		return "filtered"
	case Smoothed:
		return "smoothed"
	}
	return "unknown"
}

// Filter is linear Kalman filter
type Filter interface {
	// Predict transports estimate est to the next surface
	Predict(est trackfit.Estimate, tr Transport) (trackfit.Estimate, error)
	// Update corrects estimate est using measurement m
	Update(est trackfit.Estimate, m Measurement) (trackfit.Estimate, error)
}
