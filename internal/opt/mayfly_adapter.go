package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/competitiveswarm/internal/cso"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. The library needs a
// population of at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  max(popSize, 20),
		seed:     seed,
	}
}

func (m *MayflyAdapter) Name() string { return AlgorithmMayfly }

// Run executes the Mayfly optimization using the external library. The
// library exposes no iteration hook or final population, so a single progress
// record is reported when it returns, with MeanFitness taken over every
// evaluation of the run. Cancellation short-circuits the objective to +Inf and the
// run is reported as cancelled.
func (m *MayflyAdapter) Run(ctx context.Context, b problem.Benchmark, reporter cso.Reporter) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before start: %w", err)
	}

	obj := &trackedObjective{ctx: ctx, b: b}
	lower, upper := b.Bounds()

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = obj.eval
	config.ProblemSize = b.Dimension()
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// External library uses scalar bounds; benchmarks are hypercubes.
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.seed))

	start := time.Now()
	result, err := mayfly.Optimize(config)
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run cancelled: %w", ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("mayfly: %w", err)
	}
	if err := obj.failure(); err != nil {
		return nil, err
	}

	best := append([]float64(nil), result.GlobalBest.Position...)
	if br, ok := reporter.(BestReporter); ok {
		br.ReportBest(m.maxIters, slices.Clone(best), result.GlobalBest.Cost)
	}
	if reporter != nil {
		reporter.Report(cso.Progress{
			Iteration:   m.maxIters,
			BestFitness: result.GlobalBest.Cost,
			MeanFitness: obj.mean(),
		})
	}

	return &Result{
		Algorithm:    AlgorithmMayfly,
		Problem:      b.Name(),
		BestParticle: best,
		BestFitness:  result.GlobalBest.Cost,
		Iterations:   m.maxIters,
		Evaluations:  obj.count(),
		Elapsed:      elapsed,
	}, nil
}

// trackedObjective adapts Benchmark.Fitness to the library's plain float
// objective, counting successful evaluations and keeping the first error.
type trackedObjective struct {
	ctx context.Context
	b   problem.Benchmark

	mu    sync.Mutex
	calls int
	sum   float64
	err   error
}

func (o *trackedObjective) eval(x []float64) float64 {
	o.mu.Lock()
	failed := o.err != nil
	o.mu.Unlock()

	if failed || o.ctx.Err() != nil {
		return math.Inf(1)
	}

	f, err := o.b.Fitness(x)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = fmt.Errorf("%w: %v", cso.ErrNonFiniteFitness, f)
	}
	if err != nil {
		o.mu.Lock()
		if o.err == nil {
			o.err = &cso.EvaluationError{Op: "fitness", Index: -1, Err: err}
		}
		o.mu.Unlock()
		return math.Inf(1)
	}

	o.mu.Lock()
	o.calls++
	o.sum += f
	o.mu.Unlock()
	return f
}

func (o *trackedObjective) mean() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == 0 {
		return 0
	}
	return o.sum / float64(o.calls)
}

func (o *trackedObjective) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func (o *trackedObjective) failure() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
