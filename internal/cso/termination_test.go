package cso

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClock(t *testing.T) {
	p := WallClock(2 * time.Second)

	assert.False(t, p.Done(Status{Elapsed: 1999 * time.Millisecond}))
	assert.True(t, p.Done(Status{Elapsed: 2 * time.Second}))
	assert.True(t, p.Done(Status{Elapsed: time.Minute}))
}

func TestMaxIterations(t *testing.T) {
	p := MaxIterations(3)

	assert.False(t, p.Done(Status{Iteration: 0}))
	assert.False(t, p.Done(Status{Iteration: 2}))
	assert.True(t, p.Done(Status{Iteration: 3}))
}

func TestTargetFitness(t *testing.T) {
	p := TargetFitness(0.01)

	assert.False(t, p.Done(Status{BestFitness: 0.5}))
	assert.True(t, p.Done(Status{BestFitness: 0.01}))
	assert.True(t, p.Done(Status{BestFitness: -3}))
}

func TestAnyOf_ConsultsEveryPolicy(t *testing.T) {
	calls := 0
	counting := TerminationFunc(func(Status) bool {
		calls++
		return false
	})

	p := AnyOf(MaxIterations(1), counting)

	assert.False(t, p.Done(Status{Iteration: 0}))
	assert.True(t, p.Done(Status{Iteration: 1}))
	assert.Equal(t, 2, calls)
}

func TestStagnation(t *testing.T) {
	p := Stagnation(3, 0.01)

	assert.False(t, p.Done(Status{BestFitness: 100}))
	assert.False(t, p.Done(Status{BestFitness: 50}), "large improvement resets")
	assert.Equal(t, 0, p.StaleCount())

	assert.False(t, p.Done(Status{BestFitness: 49.9}))
	assert.False(t, p.Done(Status{BestFitness: 49.9}))
	assert.Equal(t, 2, p.StaleCount())
	assert.True(t, p.Done(Status{BestFitness: 49.8}))
}

func TestStagnation_ZeroAndNegativeFitness(t *testing.T) {
	p := Stagnation(2, 0.1)

	assert.False(t, p.Done(Status{BestFitness: 0}))
	assert.False(t, p.Done(Status{BestFitness: -1}), "improvement from zero counts")
	assert.False(t, p.Done(Status{BestFitness: -2}), "relative improvement on negative values")
	assert.False(t, p.Done(Status{BestFitness: -2}))
	assert.True(t, p.Done(Status{BestFitness: -2}))
}

func TestStagnation_ResetThroughAnyOf(t *testing.T) {
	s := Stagnation(1, 0.5)
	p := AnyOf(s, MaxIterations(100))

	p.Done(Status{BestFitness: 1})
	assert.True(t, p.Done(Status{BestFitness: 1}))

	p.(Resetter).Reset()
	assert.Equal(t, 0, s.StaleCount())
	assert.False(t, p.Done(Status{BestFitness: 1}))
}
