package ballistics

import "errors"

var (
	// ErrDragOutOfRange is returned when a velocity falls outside the fitted
	// domain of a drag family, or the family has no table.
	ErrDragOutOfRange = errors.New("drag retardation out of range")

	// ErrNoZeroSolution is returned when no bore angle up to 45 degrees
	// reaches the requested zero.
	ErrNoZeroSolution = errors.New("no zero angle solution")

	// ErrRangeLimitExceeded accompanies a truncated solution that hit the
	// configured maximum range before terminating naturally.
	ErrRangeLimitExceeded = errors.New("trajectory range limit exceeded")
)
