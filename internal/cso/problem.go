// Package cso implements a competitive swarm optimizer: particles compete in
// random pairs and each loser learns from its winner and from the swarm mean.
package cso

// Problem supplies candidate particles and scores them.
//
// RandomParticle must draw from its own entropy source; the optimizer never
// shares its seeded generator with the problem. It is only ever called from
// the control goroutine.
//
// Fitness must be a pure function of x (lower is better). It may be called
// from several goroutines at once when parallel evaluation is enabled, and
// it must not retain or modify x.
type Problem interface {
	RandomParticle() ([]float64, error)
	Fitness(x []float64) (float64, error)
}

// Dimensioner is implemented by problems that know their dimension up front.
// It lets a zero dimension be rejected before any particle is generated.
type Dimensioner interface {
	Dimension() int
}

// ProblemFuncs adapts a pair of plain functions to the Problem interface.
type ProblemFuncs struct {
	RandomFn  func() ([]float64, error)
	FitnessFn func(x []float64) (float64, error)
}

func (p ProblemFuncs) RandomParticle() ([]float64, error) {
	return p.RandomFn()
}

func (p ProblemFuncs) Fitness(x []float64) (float64, error) {
	return p.FitnessFn(x)
}
