package store

import (
	"fmt"
	"math"
	"time"
)

// JobConfig is the persisted copy of a job's run settings. It lives here
// rather than in the server package to avoid an import cycle.
type JobConfig struct {
	Problem            string  `json:"problem"`
	Dimension          int     `json:"dimension"`
	PopulationSize     int     `json:"populationSize"`
	RunTimeSeconds     float64 `json:"runTimeSeconds,omitempty"`
	Seed               int64   `json:"seed"`
	ParallelEvaluation bool    `json:"parallelEvaluation"`
	Algorithm          string  `json:"algorithm,omitempty"`          // cso (default) or mayfly
	MaxIters           int     `json:"maxIters,omitempty"`           // 0 = wall clock only
	CheckpointInterval int     `json:"checkpointInterval,omitempty"` // seconds, 0 = disabled
}

// Checkpoint is the best solution a job has reported so far.
//
// Only the best particle is kept. The swarm itself (positions, velocities,
// fitness cache) lives for exactly one run and is never written out, so a
// checkpoint is a result record, not a resumable snapshot.
type Checkpoint struct {
	JobID        string    `json:"jobId"`
	BestParticle []float64 `json:"bestParticle"`
	BestFitness  float64   `json:"bestFitness"`
	Iteration    int       `json:"iteration"`
	Timestamp    time.Time `json:"timestamp"`
	Config       JobConfig `json:"config"`
}

// CheckpointInfo is the listing view of a checkpoint, without the particle.
type CheckpointInfo struct {
	JobID       string    `json:"jobId"`
	BestFitness float64   `json:"bestFitness"`
	Iteration   int       `json:"iteration"`
	Timestamp   time.Time `json:"timestamp"`
	Problem     string    `json:"problem"`
	Dimension   int       `json:"dimension"`
	Algorithm   string    `json:"algorithm"`
}

// NewCheckpoint stamps the current time on a job's best result.
func NewCheckpoint(jobID string, bestParticle []float64, bestFitness float64, iteration int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		BestParticle: bestParticle,
		BestFitness:  bestFitness,
		Iteration:    iteration,
		Timestamp:    time.Now(),
		Config:       config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	algorithm := c.Config.Algorithm
	if algorithm == "" {
		algorithm = "cso"
	}
	return CheckpointInfo{
		JobID:       c.JobID,
		BestFitness: c.BestFitness,
		Iteration:   c.Iteration,
		Timestamp:   c.Timestamp,
		Problem:     c.Config.Problem,
		Dimension:   c.Config.Dimension,
		Algorithm:   algorithm,
	}
}

// Validate checks the checkpoint before it is written.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.BestParticle) == 0 {
		return &ValidationError{Field: "BestParticle", Reason: "cannot be empty"}
	}
	if math.IsNaN(c.BestFitness) || math.IsInf(c.BestFitness, 0) {
		return &ValidationError{Field: "BestFitness", Reason: "must be finite"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return c.Config.Validate(len(c.BestParticle))
}

// Validate checks the persisted config. dim is the particle length it must
// agree with, or 0 to skip that check.
func (j JobConfig) Validate(dim int) error {
	if j.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if j.Dimension <= 0 {
		return &ValidationError{Field: "Config.Dimension", Reason: "must be positive"}
	}
	if dim > 0 && dim != j.Dimension {
		return &ValidationError{
			Field:  "BestParticle",
			Reason: fmt.Sprintf("length mismatch: expected %d components, got %d", j.Dimension, dim),
		}
	}
	if j.PopulationSize < 2 || j.PopulationSize%2 != 0 {
		return &ValidationError{Field: "Config.PopulationSize", Reason: "must be even and at least 2"}
	}
	if j.RunTimeSeconds < 0 {
		return &ValidationError{Field: "Config.RunTimeSeconds", Reason: "cannot be negative"}
	}
	if j.MaxIters < 0 {
		return &ValidationError{Field: "Config.MaxIters", Reason: "cannot be negative"}
	}
	if j.RunTimeSeconds == 0 && j.MaxIters == 0 {
		return &ValidationError{Field: "Config.RunTimeSeconds", Reason: "or MaxIters must be set"}
	}
	if j.CheckpointInterval < 0 {
		return &ValidationError{Field: "Config.CheckpointInterval", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
