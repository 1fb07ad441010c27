package systems

import (
	"errors"
	"fmt"
)

// Domain errors for solver operations.
var (
	// ErrInvalidParams indicates a solver or grid parameter outside its valid range.
	ErrInvalidParams = errors.New("pbf: invalid parameters")

	// ErrNumericalCorruption indicates particle state that cannot be repaired
	// (NaN or Inf in a start-of-step position).
	ErrNumericalCorruption = errors.New("pbf: numerical corruption (NaN or Inf detected)")
)

// SimulationError wraps an error with the step and particle it occurred at.
type SimulationError struct {
	Step     int64
	Particle int
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d, particle %d: %v", e.Step, e.Particle, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
