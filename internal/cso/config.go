package cso

import (
	"runtime"
	"time"
)

// Config holds the settings of a single competitive swarm run.
type Config struct {
	// PopulationSize is the number of particles. Must be even and >= 2.
	PopulationSize int

	// RunTime is the wall-clock budget used by the default termination
	// policy. Ignored when a custom policy is installed.
	RunTime time.Duration

	// Seed drives shuffling and the r1/r2/r3 draws. Same seed, same run.
	Seed int64

	// ParallelEvaluation dispatches fitness calls to a worker pool.
	ParallelEvaluation bool

	// Workers bounds the pool size (0 = GOMAXPROCS).
	Workers int

	// VelocityClamp limits each velocity component to [-c, c] after the
	// update (0 = no clamp).
	VelocityClamp float64
}

// DefaultConfig returns a small configuration suitable for quick runs.
func DefaultConfig() Config {
	return Config{
		PopulationSize:     40,
		RunTime:            5 * time.Second,
		Seed:               42,
		ParallelEvaluation: false,
	}
}

// Validate checks the configuration. requireRunTime is false when a custom
// termination policy replaces the wall-clock default.
func (c Config) Validate(requireRunTime bool) error {
	if c.PopulationSize < 2 || c.PopulationSize%2 != 0 {
		return &ConfigurationError{
			Field:  "PopulationSize",
			Reason: "must be even and at least 2",
			Err:    ErrInvalidPopulationSize,
		}
	}
	if requireRunTime && c.RunTime <= 0 {
		return &ConfigurationError{Field: "RunTime", Reason: "must be positive", Err: ErrInvalidRunTime}
	}
	if c.Workers < 0 {
		return &ConfigurationError{Field: "Workers", Reason: "cannot be negative", Err: ErrInvalidWorkers}
	}
	if c.VelocityClamp < 0 {
		return &ConfigurationError{Field: "VelocityClamp", Reason: "cannot be negative", Err: ErrInvalidClamp}
	}
	return nil
}

func (c Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
