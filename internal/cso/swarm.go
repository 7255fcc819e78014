package cso

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Swarm is the mutable population of a run. Row i of Positions, Velocities
// and Fitness describes particle i. Only the orchestrator mutates it.
type Swarm struct {
	Positions  [][]float64
	Velocities [][]float64
	Fitness    []float64
	Iteration  int

	dim int
}

// newSwarm calls problem.RandomParticle exactly n times. Velocities start at
// zero; fitness stays unset until the first full evaluation.
func newSwarm(n int, problem Problem) (*Swarm, error) {
	s := &Swarm{
		Positions:  make([][]float64, n),
		Velocities: make([][]float64, n),
		Fitness:    make([]float64, n),
	}

	for i := 0; i < n; i++ {
		x, err := randomParticle(problem)
		if err != nil {
			return nil, &EvaluationError{Op: "random particle", Iteration: 0, Index: i, Err: err}
		}

		if i == 0 {
			if len(x) == 0 {
				return nil, &ConfigurationError{Field: "Dimension", Reason: "must be positive", Err: ErrZeroDimension}
			}
			s.dim = len(x)
		} else if len(x) != s.dim {
			return nil, &ContractViolationError{
				Iteration: 0,
				Index:     i,
				Detail:    fmt.Sprintf("expected %d components, got %d", s.dim, len(x)),
				Err:       ErrDimensionMismatch,
			}
		}

		// The problem may reuse its buffer between calls.
		s.Positions[i] = append([]float64(nil), x...)
		s.Velocities[i] = make([]float64, s.dim)
	}

	return s, nil
}

func randomParticle(problem Problem) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return problem.RandomParticle()
}

// Size returns the number of particles.
func (s *Swarm) Size() int {
	return len(s.Positions)
}

// Dim returns the particle dimension.
func (s *Swarm) Dim() int {
	return s.dim
}

// Mean returns the column-wise mean of all current positions.
func (s *Swarm) Mean() []float64 {
	mean := make([]float64, s.dim)
	for _, x := range s.Positions {
		floats.Add(mean, x)
	}
	floats.Scale(1/float64(len(s.Positions)), mean)
	return mean
}

// Best returns the index and fitness of the best particle. Ties go to the
// lowest index.
func (s *Swarm) Best() (int, float64) {
	i := floats.MinIdx(s.Fitness)
	return i, s.Fitness[i]
}

// MeanFitness returns the average fitness of the population.
func (s *Swarm) MeanFitness() float64 {
	return stat.Mean(s.Fitness, nil)
}

// Clone returns a deep copy.
func (s *Swarm) Clone() *Swarm {
	c := &Swarm{
		Positions:  make([][]float64, len(s.Positions)),
		Velocities: make([][]float64, len(s.Velocities)),
		Fitness:    append([]float64(nil), s.Fitness...),
		Iteration:  s.Iteration,
		dim:        s.dim,
	}
	for i := range s.Positions {
		c.Positions[i] = append([]float64(nil), s.Positions[i]...)
		c.Velocities[i] = append([]float64(nil), s.Velocities[i]...)
	}
	return c
}
