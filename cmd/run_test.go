package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/config"
	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/store"
)

func newRunCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	addRunFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	return cmd
}

func smallRunConfig(dataDir string) *config.RunConfig {
	cfg := config.Default()
	cfg.Problem.Dimension = 3
	cfg.Swarm.PopulationSize = 20
	cfg.Swarm.RunTimeSeconds = 0
	cfg.Swarm.MaxIterations = 50
	cfg.Output.DataDir = dataDir
	return cfg
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := loadRunConfig(newRunCommand(t))
	if err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if cfg.Problem.Name != "sphere" || cfg.Problem.Dimension != 10 || cfg.Swarm.PopulationSize != 40 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Swarm.TargetFitness != nil {
		t.Error("target fitness should stay unset unless --target is given")
	}
}

func TestLoadRunConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yamlText := "problem:\n  name: rastrigin\n  dimension: 6\nswarm:\n  population_size: 60\n"
	if err := os.WriteFile(path, []byte(yamlText), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRunCommand(t, "--config", path, "--dim", "4", "--target", "0.01", "--iters", "300")
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}

	if cfg.Problem.Name != "rastrigin" {
		t.Errorf("file value lost: problem %s", cfg.Problem.Name)
	}
	if cfg.Problem.Dimension != 4 {
		t.Errorf("flag should override file: dimension %d", cfg.Problem.Dimension)
	}
	if cfg.Swarm.PopulationSize != 60 {
		t.Errorf("unset flag should not override file: population %d", cfg.Swarm.PopulationSize)
	}
	if cfg.Swarm.TargetFitness == nil || *cfg.Swarm.TargetFitness != 0.01 {
		t.Errorf("expected target 0.01, got %v", cfg.Swarm.TargetFitness)
	}
	if cfg.Swarm.MaxIterations != 300 {
		t.Errorf("expected 300 iterations, got %d", cfg.Swarm.MaxIterations)
	}
}

func TestLoadRunConfig_AppliesFileLogLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadRunConfig(newRunCommand(t, "--config", path)); err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("log_level: debug from the config file was not applied")
	}
}

func TestLoadRunConfig_LogLevelFlagWins(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn})))

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRunCommand(t, "--config", path)
	cmd.Flags().String("log-level", "info", "")
	if err := cmd.Flags().Set("log-level", "warn"); err != nil {
		t.Fatal(err)
	}

	if _, err := loadRunConfig(cmd); err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("config file log level should not override --log-level")
	}
}

func TestLoadRunConfig_Invalid(t *testing.T) {
	if _, err := loadRunConfig(newRunCommand(t, "--pop", "7")); err == nil {
		t.Error("expected error for odd population")
	}
	if _, err := loadRunConfig(newRunCommand(t, "--lower=-1")); err == nil {
		t.Error("expected error for lower bound without upper")
	}
}

func TestExecuteRun_WritesTraceAndCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfg := smallRunConfig(dir)
	cfg.Output.Trace = true

	result, err := executeRun(context.Background(), cfg)
	if err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}
	if result.Iterations != 50 || result.Evaluations != 20+50*10 {
		t.Errorf("unexpected counters: %d iterations, %d evaluations", result.Iterations, result.Evaluations)
	}

	checkpointStore, _ := store.NewFSStore(dir)
	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one checkpoint, got %d", len(infos))
	}
	if infos[0].BestFitness != result.BestFitness || infos[0].Iteration != 50 {
		t.Errorf("checkpoint does not match result: %+v", infos[0])
	}

	entries, err := store.ReadTrace(checkpointStore.JobDir(infos[0].JobID))
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(entries) != 50 {
		t.Errorf("expected 50 trace entries, got %d", len(entries))
	}
}

func TestExecuteRun_NoTrace(t *testing.T) {
	dir := t.TempDir()
	cfg := smallRunConfig(dir)

	if _, err := executeRun(context.Background(), cfg); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "jobs")); !os.IsNotExist(err) {
		t.Errorf("nothing should be written without --trace, stat err = %v", err)
	}
}

func TestExecuteRun_Cancelled(t *testing.T) {
	cfg := smallRunConfig(t.TempDir())
	cfg.Swarm.MaxIterations = 0
	cfg.Swarm.RunTimeSeconds = 60

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := executeRun(ctx, cfg); err == nil {
		t.Error("expected an error from a cancelled run")
	}
}

func TestPrintResult(t *testing.T) {
	result := &opt.Result{
		Algorithm:    "cso",
		Problem:      "sphere",
		BestParticle: []float64{0.1, -0.2},
		BestFitness:  0.05,
		Iterations:   10,
		Evaluations:  120,
		Elapsed:      time.Second,
	}

	var text bytes.Buffer
	if err := printResult(&text, result, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "Best fitness: 0.05") || !strings.Contains(text.String(), "Evaluations:  120") {
		t.Errorf("unexpected text output:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := printResult(&js, result, true); err != nil {
		t.Fatal(err)
	}
	var decoded opt.Result
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.BestFitness != 0.05 || len(decoded.BestParticle) != 2 {
		t.Errorf("unexpected decoded result: %+v", decoded)
	}
}

func TestPrintComparison(t *testing.T) {
	cfg := smallRunConfig("")
	results := []*opt.Result{
		{Algorithm: "cso", BestFitness: 1e-3, Iterations: 50, Evaluations: 520},
		{Algorithm: "mayfly", BestFitness: 2e-3, Iterations: 50, Evaluations: 4000},
	}

	var out bytes.Buffer
	if err := printComparison(&out, cfg, results); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Problem sphere, D=3", "cso", "mayfly", "520", "4000"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestProblemsCommand(t *testing.T) {
	var out bytes.Buffer
	problemsCmd.SetOut(&out)
	t.Cleanup(func() { problemsCmd.SetOut(nil) })

	if err := problemsCmd.RunE(problemsCmd, nil); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"sphere", "rastrigin", "[-5.12, 5.12]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
