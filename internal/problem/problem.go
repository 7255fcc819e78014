// Package problem provides benchmark problem definitions for the optimizers.
package problem

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Benchmark is a box-bounded test function. Particles are sampled uniformly
// from the box using the benchmark's own generator; Fitness is pure and safe
// for concurrent use.
type Benchmark interface {
	Name() string
	Dimension() int
	Bounds() (lower, upper []float64)
	RandomParticle() ([]float64, error)
	Fitness(x []float64) (float64, error)
}

// Function is an objective over R^D (lower is better).
type Function func(x []float64) float64

type definition struct {
	fn          Function
	lower       float64
	upper       float64
	description string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]definition{
		"sphere":         {Sphere, -5, 5, "quadratic bowl, minimum 0 at the origin"},
		"shifted_sphere": {ShiftedSphere, -5, 5, "quadratic bowl, minimum 0 at (2.5, ..., 2.5)"},
		"rastrigin":      {Rastrigin, -5.12, 5.12, "highly multimodal, minimum 0 at the origin"},
		"rosenbrock":     {Rosenbrock, -5, 10, "curved valley, minimum 0 at (1, ..., 1)"},
		"ackley":         {Ackley, -32.768, 32.768, "nearly flat outer region, minimum 0 at the origin"},
		"griewank":       {Griewank, -600, 600, "many regularly spaced local minima, minimum 0 at the origin"},
	}
)

// Register adds or replaces a named benchmark.
func Register(name string, fn Function, lower, upper float64, description string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = definition{fn: fn, lower: lower, upper: upper, description: description}
}

// Names returns the registered benchmark names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a one-line description of a registered benchmark.
func Describe(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name].description
}

// New creates the named benchmark with its default bounds.
func New(name string, dim int, seed int64) (Benchmark, error) {
	registryMu.RLock()
	def, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return NewWithBounds(name, dim, seed, def.lower, def.upper)
}

// NewWithBounds creates the named benchmark sampling from [lower, upper]^dim.
func NewWithBounds(name string, dim int, seed int64, lower, upper float64) (Benchmark, error) {
	registryMu.RLock()
	def, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if lower >= upper {
		return nil, fmt.Errorf("lower bound %g must be below upper bound %g", lower, upper)
	}

	return &boxProblem{
		name:  name,
		dim:   dim,
		lower: lower,
		upper: upper,
		fn:    def.fn,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

type boxProblem struct {
	name  string
	dim   int
	lower float64
	upper float64
	fn    Function
	rng   *rand.Rand
}

func (p *boxProblem) Name() string   { return p.name }
func (p *boxProblem) Dimension() int { return p.dim }

func (p *boxProblem) Bounds() (lower, upper []float64) {
	lower = make([]float64, p.dim)
	upper = make([]float64, p.dim)
	for i := range lower {
		lower[i] = p.lower
		upper[i] = p.upper
	}
	return lower, upper
}

func (p *boxProblem) RandomParticle() ([]float64, error) {
	x := make([]float64, p.dim)
	for i := range x {
		x[i] = p.lower + p.rng.Float64()*(p.upper-p.lower)
	}
	return x, nil
}

func (p *boxProblem) Fitness(x []float64) (float64, error) {
	if len(x) != p.dim {
		return 0, fmt.Errorf("%s: expected %d components, got %d", p.name, p.dim, len(x))
	}
	return p.fn(x), nil
}
