package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/cso"
	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/problem"
	"github.com/cwbudde/competitiveswarm/internal/store"
)

// progressInterval throttles SSE progress events.
const progressInterval = 500 * time.Millisecond

// settingsFor converts a job config into optimizer settings.
func settingsFor(cfg JobConfig) opt.Settings {
	return opt.Settings{
		Algorithm:          cfg.Algorithm,
		PopulationSize:     cfg.PopulationSize,
		RunTime:            time.Duration(cfg.RunTimeSeconds * float64(time.Second)),
		MaxIterations:      cfg.MaxIters,
		Seed:               cfg.Seed,
		ParallelEvaluation: cfg.ParallelEvaluation,
	}
}

// jobReporter pushes optimizer progress into the job record.
type jobReporter struct {
	jm    *JobManager
	jobID string
}

func (r jobReporter) Report(p cso.Progress) {
	r.jm.UpdateJob(r.jobID, func(j *Job) {
		j.Iterations = p.Iteration
		j.BestFitness = p.BestFitness
		j.MeanFitness = p.MeanFitness
	})
}

func (r jobReporter) ReportBest(iteration int, particle []float64, fitness float64) {
	r.jm.UpdateJob(r.jobID, func(j *Job) {
		j.BestParticle = particle
		j.BestFitness = fitness
		j.Iterations = iteration
	})
}

// runJob executes an optimization job in the background. If checkpointStore
// is not nil the progress trace is written to the job directory, a final
// checkpoint is saved on completion, and periodic checkpoints are saved when
// the job has checkpointInterval > 0.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := jm.start(jobID, cancel); err != nil {
		slog.Warn("Job not started", "job_id", jobID, "error", err)
		return err
	}
	job, _ := jm.GetJob(jobID)

	slog.Info("Starting job",
		"job_id", jobID,
		"problem", job.Config.Problem,
		"dimension", job.Config.Dimension,
		"algorithm", job.Config.Algorithm,
	)

	benchmark, err := problem.New(job.Config.Problem, job.Config.Dimension, job.Config.Seed)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	optimizer, err := opt.New(settingsFor(job.Config))
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	reporters := cso.MultiReporter{jobReporter{jm: jm, jobID: jobID}}
	var trace *store.TraceWriter
	if checkpointStore != nil {
		trace, err = store.NewTraceWriter(checkpointStore.JobDir(jobID), false)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		reporters = append(reporters, trace)
	}

	start := time.Now()
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, start, progressDone)

	checkpointDone := make(chan struct{})
	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		go monitorCheckpoints(ctx, jm, checkpointStore, jobID, checkpointDone)
	}

	result, err := optimizer.Run(ctx, benchmark, bestReporter{reporters, jobReporter{jm: jm, jobID: jobID}})
	close(progressDone)
	close(checkpointDone)

	// The trace must be complete before the job is seen as finished.
	if trace != nil {
		if err := trace.Close(); err != nil {
			slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestParticle = result.BestParticle
		j.BestFitness = result.BestFitness
		j.Iterations = result.Iterations
		j.Evaluations = result.Evaluations
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	if checkpointStore != nil {
		if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	evalsPerSecond := evaluationRate(result.Evaluations, result.Elapsed)
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", result.Elapsed,
		"iterations", result.Iterations,
		"best_fitness", result.BestFitness,
		"evals_per_second", evalsPerSecond,
	)

	broadcastState(jm, jobID, evalsPerSecond)
	return nil
}

// bestReporter joins the progress fan-out with the job's best-particle hook.
type bestReporter struct {
	cso.MultiReporter
	best opt.BestReporter
}

func (b bestReporter) ReportBest(iteration int, particle []float64, fitness float64) {
	b.best.ReportBest(iteration, particle, fitness)
}

// estimatedEvaluations approximates evaluations for a running cso job:
// the full initial population plus one half per iteration.
func estimatedEvaluations(cfg JobConfig, iterations int) int {
	return cfg.PopulationSize + iterations*cfg.PopulationSize/2
}

func evaluationRate(evaluations int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(evaluations) / elapsed.Seconds()
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, startTime time.Time, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			evals := estimatedEvaluations(job.Config, job.Iterations)
			broadcastState(jm, jobID, evaluationRate(evals, time.Since(startTime)))
		}
	}
}

// broadcastState sends the job's current state to SSE subscribers.
func broadcastState(jm *JobManager, jobID string, evalsPerSecond float64) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:          jobID,
		State:          job.State,
		Iterations:     job.Iterations,
		BestFitness:    job.BestFitness,
		MeanFitness:    job.MeanFitness,
		EvalsPerSecond: evalsPerSecond,
		Timestamp:      time.Now(),
	})
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastState(jm, jobID, 0)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
	broadcastState(jm, jobID, 0)
}

// monitorCheckpoints periodically saves checkpoints during optimization
func monitorCheckpoints(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string, done chan struct{}) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	ticker := time.NewTicker(time.Duration(job.Config.CheckpointInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}
}

// saveCheckpoint saves the job's current best particle.
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if len(job.BestParticle) == 0 {
		slog.Debug("Skipping checkpoint, no best particle yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(jobID, job.BestParticle, job.BestFitness, job.Iterations, job.Config)
	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Checkpoint saved",
		"job_id", jobID,
		"iteration", job.Iterations,
		"best_fitness", job.BestFitness,
	)
	return nil
}
