package store

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestCheckpointValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Checkpoint)
		field   string
		wantErr bool
	}{
		{"valid", func(*Checkpoint) {}, "", false},
		{"valid iteration limit only", func(c *Checkpoint) { c.Config.RunTimeSeconds = 0; c.Config.MaxIters = 100 }, "", false},
		{"empty job id", func(c *Checkpoint) { c.JobID = "" }, "JobID", true},
		{"nil particle", func(c *Checkpoint) { c.BestParticle = nil }, "BestParticle", true},
		{"NaN fitness", func(c *Checkpoint) { c.BestFitness = math.NaN() }, "BestFitness", true},
		{"infinite fitness", func(c *Checkpoint) { c.BestFitness = math.Inf(1) }, "BestFitness", true},
		{"negative fitness is allowed", func(c *Checkpoint) { c.BestFitness = -3 }, "", false},
		{"negative iteration", func(c *Checkpoint) { c.Iteration = -1 }, "Iteration", true},
		{"zero timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }, "Timestamp", true},
		{"no problem", func(c *Checkpoint) { c.Config.Problem = "" }, "Config.Problem", true},
		{"zero dimension", func(c *Checkpoint) { c.Config.Dimension = 0 }, "Config.Dimension", true},
		{"dimension mismatch", func(c *Checkpoint) { c.Config.Dimension = 4 }, "BestParticle", true},
		{"odd population", func(c *Checkpoint) { c.Config.PopulationSize = 3 }, "Config.PopulationSize", true},
		{"no budget", func(c *Checkpoint) { c.Config.RunTimeSeconds = 0 }, "Config.RunTimeSeconds", true},
		{"negative interval", func(c *Checkpoint) { c.Config.CheckpointInterval = -1 }, "Config.CheckpointInterval", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := createTestCheckpoint("job")
			tt.mutate(cp)

			err := cp.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestNewCheckpoint(t *testing.T) {
	cfg := JobConfig{Problem: "rastrigin", Dimension: 2, PopulationSize: 10, RunTimeSeconds: 1}
	before := time.Now()
	cp := NewCheckpoint("abc", []float64{1, 2}, 3.5, 12, cfg)

	if cp.JobID != "abc" || cp.BestFitness != 3.5 || cp.Iteration != 12 {
		t.Errorf("unexpected checkpoint: %+v", cp)
	}
	if cp.Timestamp.Before(before) {
		t.Error("timestamp should be set to now")
	}
	if err := cp.Validate(); err != nil {
		t.Errorf("NewCheckpoint produced invalid checkpoint: %v", err)
	}
}

func TestCheckpointToInfo(t *testing.T) {
	cp := createTestCheckpoint("info")
	cp.Config.Algorithm = "mayfly"

	info := cp.ToInfo()
	if info.JobID != "info" || info.BestFitness != cp.BestFitness || info.Iteration != cp.Iteration {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Problem != "sphere" || info.Dimension != 3 || info.Algorithm != "mayfly" {
		t.Errorf("unexpected config metadata: %+v", info)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "Config.Dimension", Reason: "must be positive"}
	if !strings.Contains(err.Error(), "Config.Dimension must be positive") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
