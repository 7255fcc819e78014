// Package config loads YAML run configurations for the CLI.
package config

import (
	"time"

	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// RunConfig is the root of a run configuration file.
type RunConfig struct {
	LogLevel string        `yaml:"log_level"`
	Problem  ProblemConfig `yaml:"problem"`
	Swarm    SwarmConfig   `yaml:"swarm"`
	Output   OutputConfig  `yaml:"output"`
}

// ProblemConfig selects a benchmark. Lower and Upper override its default
// sampling box when both are set.
type ProblemConfig struct {
	Name      string   `yaml:"name"`
	Dimension int      `yaml:"dimension"`
	Seed      int64    `yaml:"seed"`
	Lower     *float64 `yaml:"lower,omitempty"`
	Upper     *float64 `yaml:"upper,omitempty"`
	Penalty   float64  `yaml:"penalty,omitempty"`
}

// SwarmConfig holds optimizer settings.
type SwarmConfig struct {
	Algorithm          string   `yaml:"algorithm"`
	PopulationSize     int      `yaml:"population_size"`
	RunTimeSeconds     float64  `yaml:"run_time_seconds"`
	Seed               int64    `yaml:"seed"`
	ParallelEvaluation bool     `yaml:"parallel_evaluation"`
	Workers            int      `yaml:"workers"`
	VelocityClamp      float64  `yaml:"velocity_clamp"`
	MaxIterations      int      `yaml:"max_iterations"`
	TargetFitness      *float64 `yaml:"target_fitness,omitempty"`

	StagnationPatience  int     `yaml:"stagnation_patience,omitempty"`
	StagnationThreshold float64 `yaml:"stagnation_threshold,omitempty"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	DataDir string `yaml:"data_dir"`
	Trace   bool   `yaml:"trace"`
}

// Default returns the configuration used when no file is given.
func Default() *RunConfig {
	return &RunConfig{
		LogLevel: "info",
		Problem: ProblemConfig{
			Name:      "sphere",
			Dimension: 10,
			Seed:      1,
		},
		Swarm: SwarmConfig{
			Algorithm:      opt.AlgorithmCSO,
			PopulationSize: 40,
			RunTimeSeconds: 5,
			Seed:           42,
		},
		Output: OutputConfig{DataDir: "./data"},
	}
}

// RunTime returns the wall-clock budget as a duration.
func (s SwarmConfig) RunTime() time.Duration {
	return time.Duration(s.RunTimeSeconds * float64(time.Second))
}

// Settings converts the swarm section into optimizer settings.
func (c *RunConfig) Settings() opt.Settings {
	return opt.Settings{
		Algorithm:          c.Swarm.Algorithm,
		PopulationSize:     c.Swarm.PopulationSize,
		RunTime:            c.Swarm.RunTime(),
		MaxIterations:      c.Swarm.MaxIterations,
		TargetFitness:      c.Swarm.TargetFitness,
		Seed:               c.Swarm.Seed,
		ParallelEvaluation: c.Swarm.ParallelEvaluation,
		Workers:            c.Swarm.Workers,
		VelocityClamp:      c.Swarm.VelocityClamp,

		StagnationPatience:  c.Swarm.StagnationPatience,
		StagnationThreshold: c.Swarm.StagnationThreshold,
	}
}

// Benchmark builds the configured problem.
func (c *RunConfig) Benchmark() (problem.Benchmark, error) {
	p := c.Problem

	var (
		b   problem.Benchmark
		err error
	)
	if p.Lower != nil && p.Upper != nil {
		b, err = problem.NewWithBounds(p.Name, p.Dimension, p.Seed, *p.Lower, *p.Upper)
	} else {
		b, err = problem.New(p.Name, p.Dimension, p.Seed)
	}
	if err != nil {
		return nil, err
	}

	if p.Penalty > 0 {
		b = problem.Penalized(b, p.Penalty)
	}
	return b, nil
}
