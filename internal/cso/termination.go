package cso

import (
	"log/slog"
	"math"
	"time"
)

// Status is what a termination policy sees before each would-be iteration.
type Status struct {
	Iteration   int           // completed iterations
	Elapsed     time.Duration // since the run started
	BestFitness float64
	MeanFitness float64
}

// Termination decides when a run stops. Done is called once immediately
// before each iteration; an iteration that has started always completes.
type Termination interface {
	Done(st Status) bool
}

// Resetter is implemented by stateful policies. The optimizer calls Reset at
// the start of every run so no state leaks from one run into the next.
type Resetter interface {
	Reset()
}

// TerminationFunc adapts a function to the Termination interface.
type TerminationFunc func(st Status) bool

func (f TerminationFunc) Done(st Status) bool { return f(st) }

// WallClock stops once the elapsed run time reaches d. This is the default
// policy, built from Config.RunTime.
func WallClock(d time.Duration) Termination {
	return TerminationFunc(func(st Status) bool {
		return st.Elapsed >= d
	})
}

// MaxIterations stops after exactly k iterations.
func MaxIterations(k int) Termination {
	return TerminationFunc(func(st Status) bool {
		return st.Iteration >= k
	})
}

// TargetFitness stops once the best fitness in the population is at or
// below target.
func TargetFitness(target float64) Termination {
	return TerminationFunc(func(st Status) bool {
		return st.BestFitness <= target
	})
}

// AnyOf stops as soon as one of the policies says so. Every policy is
// consulted on every check so stateful ones keep their history current.
func AnyOf(policies ...Termination) Termination {
	return anyOf(policies)
}

type anyOf []Termination

func (a anyOf) Done(st Status) bool {
	done := false
	for _, p := range a {
		if p.Done(st) {
			done = true
		}
	}
	return done
}

func (a anyOf) Reset() {
	for _, p := range a {
		if r, ok := p.(Resetter); ok {
			r.Reset()
		}
	}
}

// StagnationPolicy stops when the best fitness has not improved by at least
// Threshold (relative) for Patience consecutive checks.
type StagnationPolicy struct {
	Patience  int
	Threshold float64

	checks          int
	lastSignificant float64
	staleCount      int
}

// Stagnation creates a stagnation policy.
func Stagnation(patience int, threshold float64) *StagnationPolicy {
	s := &StagnationPolicy{Patience: patience, Threshold: threshold}
	s.Reset()
	return s
}

// Done records st.BestFitness and reports whether patience ran out.
func (s *StagnationPolicy) Done(st Status) bool {
	s.checks++
	if s.checks == 1 {
		s.lastSignificant = st.BestFitness
		return false
	}

	denom := math.Abs(s.lastSignificant)
	if denom == 0 {
		denom = 1
	}
	improvement := (s.lastSignificant - st.BestFitness) / denom

	if improvement >= s.Threshold && improvement > 0 {
		s.lastSignificant = st.BestFitness
		s.staleCount = 0
		return false
	}

	s.staleCount++
	if s.staleCount >= s.Patience {
		slog.Debug("Stagnation detected",
			"iteration", st.Iteration,
			"stale_count", s.staleCount,
			"best_fitness", st.BestFitness,
		)
		return true
	}
	return false
}

// StaleCount returns the number of checks without significant improvement.
func (s *StagnationPolicy) StaleCount() int {
	return s.staleCount
}

// Reset clears the tracked history.
func (s *StagnationPolicy) Reset() {
	s.checks = 0
	s.lastSignificant = math.Inf(1)
	s.staleCount = 0
}
