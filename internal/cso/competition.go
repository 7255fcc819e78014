package cso

import "math/rand"

// Competition is the outcome of one round of pairwise tournaments.
// Winners[k] beat Losers[k].
type Competition struct {
	Winners []int
	Losers  []int
}

// Pairs returns the number of tournaments.
func (c Competition) Pairs() int {
	return len(c.Winners)
}

// Compete shuffles the particle indices with rng, pairs them up in order and
// lets the lower fitness win each pair. On equal fitness the lower index
// wins. len(fitness) must be even.
func Compete(rng *rand.Rand, fitness []float64) Competition {
	n := len(fitness)
	perm := allIndices(n)
	rng.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	c := Competition{
		Winners: make([]int, n/2),
		Losers:  make([]int, n/2),
	}
	for k := 0; k < n/2; k++ {
		a, b := perm[2*k], perm[2*k+1]
		if beats(fitness, b, a) {
			a, b = b, a
		}
		c.Winners[k] = a
		c.Losers[k] = b
	}
	return c
}

// beats reports whether particle i wins against particle j.
func beats(fitness []float64, i, j int) bool {
	if fitness[i] != fitness[j] {
		return fitness[i] < fitness[j]
	}
	return i < j
}
