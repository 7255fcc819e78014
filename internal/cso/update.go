package cso

import "math/rand"

// updateVelocities moves every loser's velocity toward its winner and the
// swarm mean:
//
//	v[l] = r1*v[l] + r2*(x[w]-x[l]) + r3*(mean-x[l])
//
// r1, r2 and r3 are drawn once per loser, in pair order. mean must be
// computed before any loser moves. Winners are not touched.
func updateVelocities(rng *rand.Rand, s *Swarm, c Competition, mean []float64, clamp float64) {
	for k, l := range c.Losers {
		w := c.Winners[k]
		r1 := rng.Float64()
		r2 := rng.Float64()
		r3 := rng.Float64()

		v, xl, xw := s.Velocities[l], s.Positions[l], s.Positions[w]
		for d := range v {
			v[d] = r1*v[d] + r2*(xw[d]-xl[d]) + r3*(mean[d]-xl[d])
		}
		if clamp > 0 {
			clampVector(v, clamp)
		}
	}
}

// updatePositions applies x[l] += v[l] for every loser. Bounds are the
// fitness function's business.
func updatePositions(s *Swarm, c Competition) {
	for _, l := range c.Losers {
		x, v := s.Positions[l], s.Velocities[l]
		for d := range x {
			x[d] += v[d]
		}
	}
}

func clampVector(v []float64, c float64) {
	for d := range v {
		if v[d] > c {
			v[d] = c
		} else if v[d] < -c {
			v[d] = -c
		}
	}
}
