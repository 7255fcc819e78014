package cso

import (
	"fmt"
	"math"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator scores particles and writes the results into the swarm's fitness
// slots. Each index is written by exactly one task, so the swarm needs no
// locking even when tasks run in parallel.
type Evaluator struct {
	problem  Problem
	parallel bool
	workers  int
}

// NewEvaluator creates an evaluator. workers <= 0 means one worker.
func NewEvaluator(problem Problem, parallel bool, workers int) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{problem: problem, parallel: parallel, workers: workers}
}

// Evaluate computes fitness for the given particle indices. In parallel mode
// it blocks until every task of the batch has finished. When several
// particles fail, the error of the first one in indices order is returned.
func (e *Evaluator) Evaluate(s *Swarm, indices []int, iteration int) error {
	if !e.parallel || len(indices) < 2 || e.workers == 1 {
		for _, idx := range indices {
			if err := e.evaluateOne(s, idx, iteration); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(indices))
	p := pool.New().WithMaxGoroutines(min(e.workers, len(indices)))
	for k, idx := range indices {
		p.Go(func() {
			errs[k] = e.evaluateOne(s, idx, iteration)
		})
	}
	p.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) evaluateOne(s *Swarm, idx, iteration int) error {
	f, err := callFitness(e.problem, s.Positions[idx])
	if err != nil {
		return &EvaluationError{Op: "fitness", Iteration: iteration, Index: idx, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &ContractViolationError{
			Iteration: iteration,
			Index:     idx,
			Detail:    fmt.Sprintf("fitness returned %v", f),
			Err:       ErrNonFiniteFitness,
		}
	}
	s.Fitness[idx] = f
	return nil
}

func callFitness(problem Problem, x []float64) (f float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return problem.Fitness(x)
}

// allIndices returns 0..n-1.
func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
