package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/config"
	"github.com/cwbudde/competitiveswarm/internal/cso"
	"github.com/cwbudde/competitiveswarm/internal/logger"
	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/store"
)

var (
	configPath   string
	problemName  string
	dimension    int
	problemSeed  int64
	lowerBound   float64
	upperBound   float64
	penalty      float64
	algorithm    string
	popSize      int
	runSeconds   float64
	maxIters     int
	targetFit    float64
	seed         int64
	parallel     bool
	workers      int
	clamp        float64
	patience     int
	threshold    float64
	dataDir      string
	writeTrace   bool
	jsonOutput   bool
	logEveryIter int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Minimizes one benchmark function and prints the best particle found.

Settings come from --config (YAML) when given, otherwise from built-in
defaults. Flags set on the command line override either source. With
--trace, per-iteration progress is written to <data-dir>/jobs/<id>/trace.jsonl
and the final result is saved as a checkpoint.`,
	RunE: runOptimization,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML run configuration")
	f.StringVar(&problemName, "problem", "sphere", "Benchmark problem (see 'problems')")
	f.IntVar(&dimension, "dim", 10, "Problem dimension")
	f.Int64Var(&problemSeed, "problem-seed", 1, "Seed for initial particle sampling")
	f.Float64Var(&lowerBound, "lower", 0, "Override the lower sampling bound (requires --upper)")
	f.Float64Var(&upperBound, "upper", 0, "Override the upper sampling bound (requires --lower)")
	f.Float64Var(&penalty, "penalty", 0, "Quadratic penalty weight for leaving the bounds (0 = none)")
	f.StringVar(&algorithm, "algorithm", opt.AlgorithmCSO, "Optimizer: cso or mayfly")
	f.IntVar(&popSize, "pop", 40, "Population size (even)")
	f.Float64Var(&runSeconds, "time", 5, "Wall-clock budget in seconds (0 = none)")
	f.IntVar(&maxIters, "iters", 0, "Maximum iterations (0 = none)")
	f.Float64Var(&targetFit, "target", 0, "Stop once the best fitness reaches this value (needs --time or --iters)")
	f.Int64Var(&seed, "seed", 42, "Optimizer random seed")
	f.BoolVar(&parallel, "parallel", false, "Evaluate losers concurrently")
	f.IntVar(&workers, "workers", 0, "Evaluation workers when --parallel is set (0 = GOMAXPROCS)")
	f.Float64Var(&clamp, "clamp", 0, "Velocity clamp per component (0 = none)")
	f.IntVar(&patience, "patience", 0, "Stop after N iterations without improvement (0 = disabled)")
	f.Float64Var(&threshold, "threshold", 1e-6, "Relative improvement that resets --patience")
	f.StringVar(&dataDir, "data-dir", "./data", "Directory for traces and checkpoints")
	f.BoolVar(&writeTrace, "trace", false, "Write a progress trace and final checkpoint")
	f.BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	f.IntVar(&logEveryIter, "log-every", 100, "Log progress every N iterations at debug level")
}

// loadRunConfig builds the run configuration from --config and any flags
// the user set explicitly.
func loadRunConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
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
	if f.Changed("lower") {
		cfg.Problem.Lower = &lowerBound
	}
	if f.Changed("upper") {
		cfg.Problem.Upper = &upperBound
	}
	if f.Changed("penalty") {
		cfg.Problem.Penalty = penalty
	}
	if f.Changed("algorithm") {
		cfg.Swarm.Algorithm = algorithm
	}
	if f.Changed("pop") {
		cfg.Swarm.PopulationSize = popSize
	}
	if f.Changed("time") {
		cfg.Swarm.RunTimeSeconds = runSeconds
	}
	if f.Changed("iters") {
		cfg.Swarm.MaxIterations = maxIters
	}
	if f.Changed("target") {
		cfg.Swarm.TargetFitness = &targetFit
	}
	if f.Changed("seed") {
		cfg.Swarm.Seed = seed
	}
	if f.Changed("parallel") {
		cfg.Swarm.ParallelEvaluation = parallel
	}
	if f.Changed("workers") {
		cfg.Swarm.Workers = workers
	}
	if f.Changed("clamp") {
		cfg.Swarm.VelocityClamp = clamp
	}
	if f.Changed("patience") {
		cfg.Swarm.StagnationPatience = patience
		cfg.Swarm.StagnationThreshold = threshold
	}
	if f.Changed("threshold") {
		cfg.Swarm.StagnationThreshold = threshold
	}
	if f.Changed("data-dir") {
		cfg.Output.DataDir = dataDir
	}
	if f.Changed("trace") {
		cfg.Output.Trace = writeTrace
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applyConfigLogLevel(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigLogLevel switches the default logger to the configured level
// unless --log-level was given on the command line.
func applyConfigLogLevel(cmd *cobra.Command, cfg *config.RunConfig) error {
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		return nil
	}
	_, err := logger.Setup(cfg.LogLevel, logFormat, os.Stderr)
	return err
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executeRun(ctx, cfg)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result, jsonOutput)
}

// executeRun runs the configured optimizer once, writing a trace and final
// checkpoint when cfg.Output.Trace is set.
func executeRun(ctx context.Context, cfg *config.RunConfig) (*opt.Result, error) {
	benchmark, err := cfg.Benchmark()
	if err != nil {
		return nil, err
	}
	optimizer, err := opt.New(cfg.Settings())
	if err != nil {
		return nil, err
	}

	reporters := cso.MultiReporter{cso.LogReporter{Every: logEveryIter}}

	var (
		fsStore *store.FSStore
		trace   *store.TraceWriter
		jobID   string
	)
	if cfg.Output.Trace {
		fsStore, err = store.NewFSStore(cfg.Output.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		jobID = uuid.New().String()
		trace, err = store.NewTraceWriter(fsStore.JobDir(jobID), false)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace: %w", err)
		}
		defer trace.Close()
		reporters = append(reporters, trace)
	}

	slog.Info("Starting optimization",
		"algorithm", optimizer.Name(),
		"problem", benchmark.Name(),
		"dimension", benchmark.Dimension(),
		"population", cfg.Swarm.PopulationSize,
		"job_id", jobID,
	)

	result, err := optimizer.Run(ctx, benchmark, reporters)
	if err != nil {
		return nil, err
	}

	slog.Info("Optimization complete",
		"best_fitness", result.BestFitness,
		"iterations", result.Iterations,
		"evaluations", result.Evaluations,
		"elapsed", result.Elapsed,
	)

	if trace != nil {
		if err := trace.Err(); err != nil {
			slog.Warn("Trace incomplete", "error", err)
		}
		checkpoint := store.NewCheckpoint(jobID, result.BestParticle, result.BestFitness, result.Iterations, jobConfigFor(cfg))
		if err := fsStore.SaveCheckpoint(jobID, checkpoint); err != nil {
			slog.Warn("Failed to save checkpoint", "job_id", jobID, "error", err)
		} else {
			slog.Info("Saved checkpoint", "job_id", jobID, "dir", fsStore.JobDir(jobID))
		}
	}
	return result, nil
}

func jobConfigFor(cfg *config.RunConfig) store.JobConfig {
	return store.JobConfig{
		Problem:            cfg.Problem.Name,
		Dimension:          cfg.Problem.Dimension,
		PopulationSize:     cfg.Swarm.PopulationSize,
		RunTimeSeconds:     cfg.Swarm.RunTimeSeconds,
		Seed:               cfg.Swarm.Seed,
		ParallelEvaluation: cfg.Swarm.ParallelEvaluation,
		Algorithm:          cfg.Swarm.Algorithm,
		MaxIters:           cfg.Swarm.MaxIterations,
	}
}

func printResult(w io.Writer, result *opt.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Algorithm:    %s\n", result.Algorithm)
	fmt.Fprintf(w, "Problem:      %s\n", result.Problem)
	fmt.Fprintf(w, "Best fitness: %.6g\n", result.BestFitness)
	fmt.Fprintf(w, "Iterations:   %d\n", result.Iterations)
	fmt.Fprintf(w, "Evaluations:  %d\n", result.Evaluations)
	fmt.Fprintf(w, "Elapsed:      %s\n", result.Elapsed)
	fmt.Fprintf(w, "Best particle: %v\n", result.BestParticle)
	return nil
}
