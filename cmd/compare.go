package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/config"
	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

var compareIters int

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the competitive swarm against mayfly on one problem",
	Long: `Runs every available optimizer with the same population size, iteration
budget and seeds on an identically seeded benchmark, then prints a table.`,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML run configuration")
	f.StringVar(&problemName, "problem", "sphere", "Benchmark problem (see 'problems')")
	f.IntVar(&dimension, "dim", 10, "Problem dimension")
	f.Int64Var(&problemSeed, "problem-seed", 1, "Seed for initial particle sampling")
	f.IntVar(&popSize, "pop", 40, "Population size (even)")
	f.IntVar(&compareIters, "iters", 200, "Iterations per optimizer")
	f.Int64Var(&seed, "seed", 42, "Optimizer random seed")
	f.BoolVar(&parallel, "parallel", false, "Evaluate losers concurrently")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("problem") {
		cfg.Problem.Name = problemName
	}
	if f.Changed("dim") {
		cfg.Problem.Dimension = dimension
	}
	if f.Changed("problem-seed") {
		cfg.Problem.Seed = problemSeed
	}
	if f.Changed("pop") {
		cfg.Swarm.PopulationSize = popSize
	}
	if f.Changed("seed") {
		cfg.Swarm.Seed = seed
	}
	if f.Changed("parallel") {
		cfg.Swarm.ParallelEvaluation = parallel
	}
	if f.Changed("iters") || cfg.Swarm.MaxIterations == 0 {
		cfg.Swarm.MaxIterations = compareIters
	}
	// The iteration budget alone bounds both runs.
	cfg.Swarm.RunTimeSeconds = 0
	cfg.Swarm.TargetFitness = nil

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applyConfigLogLevel(cmd, cfg); err != nil {
		return err
	}

	optimizers := make([]opt.Optimizer, 0, len(opt.Algorithms()))
	for _, name := range opt.Algorithms() {
		settings := cfg.Settings()
		settings.Algorithm = name
		o, err := opt.New(settings)
		if err != nil {
			return err
		}
		optimizers = append(optimizers, o)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := opt.Compare(ctx, func() (problem.Benchmark, error) {
		return cfg.Benchmark()
	}, optimizers...)
	if err != nil {
		return err
	}

	return printComparison(cmd.OutOrStdout(), cfg, results)
}

func printComparison(out io.Writer, cfg *config.RunConfig, results []*opt.Result) error {
	fmt.Fprintf(out, "Problem %s, D=%d, population %d, %d iterations\n\n",
		cfg.Problem.Name, cfg.Problem.Dimension, cfg.Swarm.PopulationSize, cfg.Swarm.MaxIterations)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALGORITHM\tBEST FITNESS\tITERATIONS\tEVALUATIONS\tELAPSED")
	fmt.Fprintln(w, "---------\t------------\t----------\t-----------\t-------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.6g\t%d\t%d\t%s\n", r.Algorithm, r.BestFitness, r.Iterations, r.Evaluations, r.Elapsed)
	}
	return w.Flush()
}
