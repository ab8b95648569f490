package trackfit

import "github.com/pkg/errors"

var (
	// ErrDimensionMismatch is returned when operand shapes are incompatible
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSingular is returned when a required inverse does not exist
	ErrSingular = errors.New("singular matrix")
	// ErrNoIntersection is returned when a track does not cross a surface
	ErrNoIntersection = errors.New("no intersection")
	// ErrNotReady is returned when smoothing is requested before a complete forward pass
	ErrNotReady = errors.New("not ready")
	// ErrOutOfRange is returned when a matrix index is out of bounds
	ErrOutOfRange = errors.New("index out of range")
	// ErrBadShape is returned when matrix dimensions or data are invalid
	ErrBadShape = errors.New("invalid shape")
	// ErrInvalidStage is returned when a filter step is invoked out of order
	ErrInvalidStage = errors.New("invalid stage")
)
