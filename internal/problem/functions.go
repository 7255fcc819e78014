package problem

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Sphere: f(x) = sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += sq(v)
	}
	return sum
}

// ShiftOffset is the per-component location of the shifted sphere's minimum.
const ShiftOffset = 2.5

// ShiftedSphere: f(x) = sum((x_i - 2.5)^2), minimum 0 at (2.5, ..., 2.5).
func ShiftedSphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += sq(v - ShiftOffset)
	}
	return sum
}

// Rastrigin: f(x) = 10n + sum(x_i^2 - 10 cos(2 pi x_i)).
func Rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += sq(v) - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}

// Rosenbrock: f(x) = sum(100 (x_{i+1} - x_i^2)^2 + (1 - x_i)^2).
func Rosenbrock(x []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(x); i++ {
		sum += 100*sq(x[i+1]-sq(x[i])) + sq(1-x[i])
	}
	return sum
}

// Ackley with the usual a=20, b=0.2, c=2pi.
func Ackley(x []float64) float64 {
	n := float64(len(x))
	var sumSq, sumCos float64
	for _, v := range x {
		sumSq += sq(v)
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
}

// Griewank: f(x) = 1 + sum(x_i^2)/4000 - prod(cos(x_i / sqrt(i))).
func Griewank(x []float64) float64 {
	sum := 0.0
	prod := 1.0
	for i, v := range x {
		sum += sq(v) / 4000
		prod *= math.Cos(v / math.Sqrt(float64(i+1)))
	}
	return 1 + sum - prod
}

func sq[T constraints.Float | constraints.Integer](v T) T {
	return v * v
}

func clamp[T constraints.Float | constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
