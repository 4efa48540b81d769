package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a particle with NaN or Inf position or velocity.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched array lengths.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnknownSolver indicates a solver name with no registered strategy.
	ErrUnknownSolver = errors.New("dynamo: unknown solver")

	// ErrContextCanceled indicates the run was interrupted between steps.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step     int
	Time     float64
	Particle int
	Wrapped  error
}

func (e *SimulationError) Error() string {
	if e.Particle >= 0 {
		return fmt.Sprintf("step %d (t=%.4f) particle %d: %v", e.Step, e.Time, e.Particle, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Boundsf returns an ErrParameterBounds error with a formatted reason.
func Boundsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParameterBounds, fmt.Sprintf(format, args...))
}
