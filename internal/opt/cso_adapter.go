package opt

import (
	"context"
	"slices"

	"github.com/cwbudde/competitiveswarm/internal/cso"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// CompetitiveSwarm runs the cso package under the Optimizer interface.
type CompetitiveSwarm struct {
	settings Settings
}

// NewCompetitiveSwarm creates a competitive swarm optimizer. The run stops at
// the first of RunTime, MaxIterations, TargetFitness and stagnation that is set.
func NewCompetitiveSwarm(s Settings) *CompetitiveSwarm {
	return &CompetitiveSwarm{settings: s}
}

func (c *CompetitiveSwarm) Name() string { return AlgorithmCSO }

// Run executes a single competitive swarm run on b.
func (c *CompetitiveSwarm) Run(ctx context.Context, b problem.Benchmark, reporter cso.Reporter) (*Result, error) {
	cfg := cso.Config{
		PopulationSize:     c.settings.PopulationSize,
		RunTime:            c.settings.RunTime,
		Seed:               c.settings.Seed,
		ParallelEvaluation: c.settings.ParallelEvaluation,
		Workers:            c.settings.Workers,
		VelocityClamp:      c.settings.VelocityClamp,
	}

	opts := []cso.Option{}
	if t := c.termination(); t != nil {
		opts = append(opts, cso.WithTermination(t))
	}
	if reporter != nil {
		opts = append(opts, cso.WithReporter(reporter))
	}
	if br, ok := reporter.(BestReporter); ok {
		opts = append(opts, cso.WithObserver(func(st cso.Step) {
			idx, best := st.Swarm.Best()
			br.ReportBest(st.Iteration, slices.Clone(st.Swarm.Positions[idx]), best)
		}))
	}

	o, err := cso.New(cfg, b, opts...)
	if err != nil {
		return nil, err
	}
	res, err := o.Run(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Algorithm:    AlgorithmCSO,
		Problem:      b.Name(),
		BestParticle: res.BestParticle,
		BestFitness:  res.BestFitness,
		Iterations:   res.Iterations,
		Evaluations:  res.Evaluations,
		Elapsed:      res.Elapsed,
	}, nil
}

// termination returns nil when only the wall-clock budget applies, leaving
// cso.New to install (and validate) its default.
func (c *CompetitiveSwarm) termination() cso.Termination {
	var policies []cso.Termination
	if c.settings.MaxIterations > 0 {
		policies = append(policies, cso.MaxIterations(c.settings.MaxIterations))
	}
	if c.settings.TargetFitness != nil {
		policies = append(policies, cso.TargetFitness(*c.settings.TargetFitness))
	}
	if c.settings.StagnationPatience > 0 {
		policies = append(policies, cso.Stagnation(c.settings.StagnationPatience, c.settings.StagnationThreshold))
	}
	if len(policies) == 0 {
		return nil
	}
	if c.settings.RunTime > 0 {
		policies = append(policies, cso.WallClock(c.settings.RunTime))
	}
	return cso.AnyOf(policies...)
}
