package opt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// BenchmarkFactory returns a fresh benchmark for each run, so every
// optimizer samples from an identically seeded problem.
type BenchmarkFactory func() (problem.Benchmark, error)

// Compare runs each optimizer in turn on a fresh benchmark and returns the
// results in the same order. The first failure aborts the comparison.
func Compare(ctx context.Context, factory BenchmarkFactory, optimizers ...Optimizer) ([]*Result, error) {
	results := make([]*Result, 0, len(optimizers))
	for _, o := range optimizers {
		b, err := factory()
		if err != nil {
			return nil, fmt.Errorf("create benchmark: %w", err)
		}

		slog.Info("Running optimizer", "algorithm", o.Name(), "problem", b.Name(), "dimension", b.Dimension())
		res, err := o.Run(ctx, b, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name(), err)
		}
		results = append(results, res)
	}
	return results, nil
}
