package problem

// Penalized wraps a benchmark so that leaving the box costs
// weight * (squared distance to the box). The optimizer itself never
// enforces bounds; this keeps the constraint inside the fitness function.
func Penalized(b Benchmark, weight float64) Benchmark {
	return &penalized{Benchmark: b, weight: weight}
}

type penalized struct {
	Benchmark
	weight float64
}

func (p *penalized) Fitness(x []float64) (float64, error) {
	f, err := p.Benchmark.Fitness(x)
	if err != nil {
		return 0, err
	}
	return f + p.weight*p.excess(x), nil
}

// excess is the squared Euclidean distance from x to the box.
func (p *penalized) excess(x []float64) float64 {
	lower, upper := p.Bounds()
	var d float64
	for i, v := range x {
		d += sq(v - clamp(v, lower[i], upper[i]))
	}
	return d
}
