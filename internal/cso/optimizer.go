package cso

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned when Run is called more than once on the
// same Optimizer.
var ErrAlreadyStarted = errors.New("optimizer has already been run")

// State is the lifecycle phase of a run.
type State int32

const (
	StateUnstarted State = iota
	StateInitializing
	StateIterating
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateInitializing:
		return "INITIALIZING"
	case StateIterating:
		return "ITERATING"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result is the outcome of a completed run. BestParticle is the argmin of
// the population present when termination fired; no incumbent is carried
// across iterations.
type Result struct {
	BestParticle []float64
	BestFitness  float64
	Iterations   int
	Evaluations  int
	Elapsed      time.Duration
}

// Step describes a finished iteration to an observer. Iteration 0 is the
// freshly initialized and evaluated swarm, with an empty Competition and a
// nil Mean. Swarm is the live state: observers must not modify or retain it
// (use Clone).
type Step struct {
	Iteration   int
	Competition Competition
	Mean        []float64
	Swarm       *Swarm
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithTermination replaces the wall-clock policy.
func WithTermination(t Termination) Option {
	return func(o *Optimizer) { o.termination = t }
}

// WithReporter sets the progress consumer.
func WithReporter(r Reporter) Option {
	return func(o *Optimizer) { o.reporter = r }
}

// WithObserver registers a callback invoked after initialization and after
// every iteration.
func WithObserver(fn func(Step)) Option {
	return func(o *Optimizer) { o.observer = fn }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// Optimizer runs the competitive swarm algorithm on one problem. It is
// single-use: create a new Optimizer for every run.
type Optimizer struct {
	cfg         Config
	problem     Problem
	termination Termination
	reporter    Reporter
	observer    func(Step)
	now         func() time.Time

	state atomic.Int32
}

// New validates cfg and returns an Optimizer ready to Run. Configuration
// errors are reported here, before any particle is generated.
func New(cfg Config, problem Problem, opts ...Option) (*Optimizer, error) {
	if problem == nil {
		return nil, &ConfigurationError{Field: "Problem", Reason: "is required", Err: ErrNilProblem}
	}

	o := &Optimizer{
		cfg:     cfg,
		problem: problem,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(o.termination == nil); err != nil {
		return nil, err
	}
	if d, ok := problem.(Dimensioner); ok && d.Dimension() <= 0 {
		return nil, &ConfigurationError{Field: "Dimension", Reason: "must be positive", Err: ErrZeroDimension}
	}

	if o.termination == nil {
		o.termination = WallClock(cfg.RunTime)
	}
	if o.reporter == nil {
		o.reporter = ReporterFunc(func(Progress) {})
	}
	return o, nil
}

// State returns the current lifecycle phase. Safe for concurrent use.
func (o *Optimizer) State() State {
	return State(o.state.Load())
}

// Run executes the optimization until the termination policy fires or ctx
// is cancelled. Cancellation is only observed between iterations. Any error
// from the problem aborts the run; no partial result is returned.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	if !o.state.CompareAndSwap(int32(StateUnstarted), int32(StateInitializing)) {
		return nil, ErrAlreadyStarted
	}

	start := o.now()
	rng := rand.New(rand.NewSource(o.cfg.Seed))
	if r, ok := o.termination.(Resetter); ok {
		r.Reset()
	}

	n := o.cfg.PopulationSize
	slog.Info("Starting competitive swarm run",
		"population", n,
		"seed", o.cfg.Seed,
		"parallel", o.cfg.ParallelEvaluation,
	)

	swarm, err := newSwarm(n, o.problem)
	if err != nil {
		return o.fail(err)
	}

	eval := NewEvaluator(o.problem, o.cfg.ParallelEvaluation, o.cfg.workerCount())
	if err := eval.Evaluate(swarm, allIndices(n), 0); err != nil {
		return o.fail(err)
	}
	evaluations := n
	o.observe(Step{Swarm: swarm})

	o.state.Store(int32(StateIterating))
	for {
		if err := ctx.Err(); err != nil {
			return o.fail(fmt.Errorf("run cancelled after %d iterations: %w", swarm.Iteration, err))
		}

		_, best := swarm.Best()
		st := Status{
			Iteration:   swarm.Iteration,
			Elapsed:     o.now().Sub(start),
			BestFitness: best,
			MeanFitness: swarm.MeanFitness(),
		}
		if o.termination.Done(st) {
			break
		}

		iteration := swarm.Iteration + 1
		mean := swarm.Mean()
		comp := Compete(rng, swarm.Fitness)
		updateVelocities(rng, swarm, comp, mean, o.cfg.VelocityClamp)
		updatePositions(swarm, comp)

		losers := slices.Clone(comp.Losers)
		slices.Sort(losers)
		if err := eval.Evaluate(swarm, losers, iteration); err != nil {
			return o.fail(err)
		}
		evaluations += len(losers)
		swarm.Iteration = iteration

		_, best = swarm.Best()
		o.reporter.Report(Progress{
			Iteration:   iteration,
			BestFitness: best,
			MeanFitness: swarm.MeanFitness(),
		})
		o.observe(Step{Iteration: iteration, Competition: comp, Mean: mean, Swarm: swarm})
	}

	o.state.Store(int32(StateFinalizing))
	idx, best := swarm.Best()
	result := &Result{
		BestParticle: append([]float64(nil), swarm.Positions[idx]...),
		BestFitness:  best,
		Iterations:   swarm.Iteration,
		Evaluations:  evaluations,
		Elapsed:      o.now().Sub(start),
	}
	o.state.Store(int32(StateDone))

	slog.Info("Competitive swarm run complete",
		"iterations", result.Iterations,
		"evaluations", result.Evaluations,
		"best_fitness", result.BestFitness,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (o *Optimizer) fail(err error) (*Result, error) {
	o.state.Store(int32(StateFailed))
	slog.Error("Competitive swarm run failed", "error", err)
	return nil, err
}

func (o *Optimizer) observe(step Step) {
	if o.observer != nil {
		o.observer(step)
	}
}
