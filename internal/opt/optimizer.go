// Package opt adapts the available optimization algorithms to a common
// interface so jobs and the CLI can run and compare them interchangeably.
package opt

import (
	"context"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/cso"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// Result is the outcome of one optimizer run on one benchmark.
type Result struct {
	Algorithm    string        `json:"algorithm"`
	Problem      string        `json:"problem"`
	BestParticle []float64     `json:"bestParticle"`
	BestFitness  float64       `json:"bestFitness"`
	Iterations   int           `json:"iterations"`
	Evaluations  int           `json:"evaluations"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Name identifies the algorithm in results and job configs.
	Name() string

	// Run minimizes b. reporter may be nil. Implementations must honor ctx
	// cancellation and return an error wrapping ctx.Err() when cancelled.
	Run(ctx context.Context, b problem.Benchmark, reporter cso.Reporter) (*Result, error)
}

// BestReporter is an optional extension of cso.Reporter. When the reporter
// passed to Run also implements it, the optimizer hands over a copy of the
// current best particle after every iteration it can observe.
type BestReporter interface {
	ReportBest(iteration int, particle []float64, fitness float64)
}

// Algorithm names accepted by New.
const (
	AlgorithmCSO    = "cso"
	AlgorithmMayfly = "mayfly"
)

// Settings is the algorithm-independent part of a run configuration.
type Settings struct {
	Algorithm          string
	PopulationSize     int
	RunTime            time.Duration
	MaxIterations      int
	TargetFitness      *float64
	Seed               int64
	ParallelEvaluation bool
	Workers            int
	VelocityClamp      float64

	// StagnationPatience > 0 also stops the run once the best fitness has
	// not improved by StagnationThreshold (relative) for that many iterations.
	StagnationPatience  int
	StagnationThreshold float64
}
