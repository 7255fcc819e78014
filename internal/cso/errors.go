package cso

import (
	"errors"
	"fmt"
)

// Configuration sentinels. Use errors.Is to test for them.
var (
	ErrInvalidPopulationSize = errors.New("population size must be even and at least 2")
	ErrInvalidRunTime        = errors.New("run time must be positive")
	ErrZeroDimension         = errors.New("particle dimension must be positive")
	ErrInvalidWorkers        = errors.New("worker count cannot be negative")
	ErrInvalidClamp          = errors.New("velocity clamp cannot be negative")
	ErrNilProblem            = errors.New("problem definition is required")
)

// Problem contract sentinels.
var (
	ErrDimensionMismatch = errors.New("particle dimension mismatch")
	ErrNonFiniteFitness  = errors.New("fitness is not finite")
)

// ConfigurationError is returned before any particle is generated when the
// run settings cannot be used.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Field + " " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ContractViolationError reports a problem definition that broke its
// contract: inconsistent particle dimensions or a non-finite fitness value.
type ContractViolationError struct {
	Iteration int
	Index     int
	Detail    string
	Err       error
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("problem contract violation at iteration %d, particle %d: %v (%s)",
		e.Iteration, e.Index, e.Err, e.Detail)
}

func (e *ContractViolationError) Unwrap() error {
	return e.Err
}

// EvaluationError wraps an error returned by, or a panic raised inside,
// RandomParticle or Fitness.
type EvaluationError struct {
	Op        string // "random particle" or "fitness"
	Iteration int
	Index     int
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s failed at iteration %d, particle %d: %v", e.Op, e.Iteration, e.Index, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking problem callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
