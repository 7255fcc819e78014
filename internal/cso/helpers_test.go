package cso

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
)

// bowl is the quadratic bowl f(x) = sum(x_i^2) with particles drawn
// uniformly from [-5, 5]^dim.
type bowl struct {
	dim   int
	rng   *rand.Rand
	calls atomic.Int64
}

func newBowl(dim int, seed int64) *bowl {
	return &bowl{dim: dim, rng: rand.New(rand.NewSource(seed))}
}

func (b *bowl) RandomParticle() ([]float64, error) {
	x := make([]float64, b.dim)
	for i := range x {
		x[i] = -5 + 10*b.rng.Float64()
	}
	return x, nil
}

func (b *bowl) Fitness(x []float64) (float64, error) {
	b.calls.Add(1)
	return sphere(x), nil
}

func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// countingProblem records how often RandomParticle was called.
type countingProblem struct {
	*bowl
	randomCalls int
}

func (c *countingProblem) RandomParticle() ([]float64, error) {
	c.randomCalls++
	return c.bowl.RandomParticle()
}

// orderRecorder remembers the order of fitness calls by first component.
type orderRecorder struct {
	mu    sync.Mutex
	order []float64
}

func (r *orderRecorder) RandomParticle() ([]float64, error) {
	return nil, errors.New("not used")
}

func (r *orderRecorder) Fitness(x []float64) (float64, error) {
	r.mu.Lock()
	r.order = append(r.order, x[0])
	r.mu.Unlock()
	return x[0], nil
}

// swarmOf builds an evaluated-looking swarm from explicit rows.
func swarmOf(rows [][]float64, fitness []float64) *Swarm {
	s := &Swarm{
		Positions:  rows,
		Velocities: make([][]float64, len(rows)),
		Fitness:    fitness,
		dim:        len(rows[0]),
	}
	if s.Fitness == nil {
		s.Fitness = make([]float64, len(rows))
	}
	for i := range rows {
		s.Velocities[i] = make([]float64, len(rows[i]))
	}
	return s
}
