package opt

import "fmt"

// New builds the optimizer named by s.Algorithm ("" selects cso).
func New(s Settings) (Optimizer, error) {
	switch s.Algorithm {
	case "", AlgorithmCSO:
		return NewCompetitiveSwarm(s), nil
	case AlgorithmMayfly:
		if s.MaxIterations <= 0 {
			return nil, fmt.Errorf("mayfly requires a positive iteration limit")
		}
		return NewMayfly(s.MaxIterations, s.PopulationSize, s.Seed), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", s.Algorithm)
	}
}

// Algorithms lists the names accepted by New.
func Algorithms() []string {
	return []string{AlgorithmCSO, AlgorithmMayfly}
}
