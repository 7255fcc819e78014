package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/store"
)

func TestRunJob_Success(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testConfig())

	if err := runJob(context.Background(), jm, nil, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s (%s)", updated.State, updated.Error)
	}
	if len(updated.BestParticle) != 3 {
		t.Errorf("Expected 3 components, got %d", len(updated.BestParticle))
	}
	if updated.Iterations != 50 {
		t.Errorf("Expected 50 iterations, got %d", updated.Iterations)
	}
	if updated.Evaluations != 20+50*10 {
		t.Errorf("Expected %d evaluations, got %d", 20+50*10, updated.Evaluations)
	}
	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
}

func TestRunJob_Mayfly(t *testing.T) {
	jm := NewJobManager()
	cfg := testConfig()
	cfg.Algorithm = "mayfly"
	cfg.MaxIters = 10
	job := jm.CreateJob(cfg)

	if err := runJob(context.Background(), jm, nil, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s (%s)", updated.State, updated.Error)
	}
	if len(updated.BestParticle) != 3 {
		t.Errorf("Expected 3 components, got %d", len(updated.BestParticle))
	}
}

func TestRunJob_UnknownProblem(t *testing.T) {
	jm := NewJobManager()
	cfg := testConfig()
	cfg.Problem = "nonexistent"
	job := jm.CreateJob(cfg)

	if err := runJob(context.Background(), jm, nil, job.ID); err == nil {
		t.Error("runJob should fail for an unknown problem")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	jm := NewJobManager()
	cfg := testConfig()
	cfg.MaxIters = 0
	cfg.RunTimeSeconds = 30
	job := jm.CreateJob(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- runJob(ctx, jm, nil, job.ID)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runJob did not stop after cancellation")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestRunJob_CancelViaManager(t *testing.T) {
	jm := NewJobManager()
	cfg := testConfig()
	cfg.MaxIters = 0
	cfg.RunTimeSeconds = 30
	job := jm.CreateJob(cfg)

	done := make(chan error)
	go func() {
		done <- runJob(context.Background(), jm, nil, job.ID)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		j, _ := jm.GetJob(job.ID)
		if j.State == StateRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runJob did not stop after CancelJob")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestRunJob_WritesTraceAndCheckpoint(t *testing.T) {
	fsStore, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	jm := NewJobManager()
	job := jm.CreateJob(testConfig())

	if err := runJob(context.Background(), jm, fsStore, job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	entries, err := store.ReadTrace(fsStore.JobDir(job.ID))
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(entries) != 50 {
		t.Fatalf("expected 50 trace entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Iteration != i+1 {
			t.Errorf("entry %d has iteration %d", i, e.Iteration)
		}
	}

	cp, err := fsStore.LoadCheckpoint(job.ID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	final, _ := jm.GetJob(job.ID)
	if cp.BestFitness != final.BestFitness || cp.Iteration != 50 {
		t.Errorf("checkpoint %+v does not match job %+v", cp, final)
	}
	if cp.BestFitness != entries[len(entries)-1].BestFitness {
		t.Error("final checkpoint should match the last trace entry")
	}
}

func TestSaveCheckpoint_SkipsWithoutParticle(t *testing.T) {
	dir := t.TempDir()
	fsStore, _ := store.NewFSStore(dir)

	jm := NewJobManager()
	job := jm.CreateJob(testConfig())

	if err := saveCheckpoint(jm, fsStore, job.ID); err != nil {
		t.Fatalf("saveCheckpoint failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "jobs", job.ID, "checkpoint.json")); !os.IsNotExist(err) {
		t.Error("no checkpoint should be written before a best particle exists")
	}

	jm.UpdateJob(job.ID, func(j *Job) {
		j.BestParticle = []float64{0.1, 0.2, 0.3}
		j.BestFitness = 0.14
		j.Iterations = 7
	})
	if err := saveCheckpoint(jm, fsStore, job.ID); err != nil {
		t.Fatalf("saveCheckpoint failed: %v", err)
	}
	cp, err := fsStore.LoadCheckpoint(job.ID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if cp.Iteration != 7 {
		t.Errorf("expected iteration 7, got %d", cp.Iteration)
	}

	if err := saveCheckpoint(jm, fsStore, "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}
