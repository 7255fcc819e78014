package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/competitiveswarm/internal/store"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ErrJobFinished is returned when cancelling a job that already ended.
var ErrJobFinished = errors.New("job already finished")

// JobConfig is an alias to avoid duplication with store.JobConfig
type JobConfig = store.JobConfig

// Job is one optimization run managed by the server. BestParticle and
// BestFitness track the best member of the current population, as reported
// by the optimizer, not a running incumbent.
type Job struct {
	ID           string     `json:"id"`
	State        JobState   `json:"state"`
	Config       JobConfig  `json:"config"`
	BestParticle []float64  `json:"bestParticle,omitempty"`
	BestFitness  float64    `json:"bestFitness"`
	MeanFitness  float64    `json:"meanFitness"`
	Iterations   int        `json:"iterations"`
	Evaluations  int        `json:"evaluations"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Error        string     `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Elapsed is the run time so far, or the total once the job has ended.
func (j *Job) Elapsed() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

func (j *Job) snapshot() *Job {
	c := *j
	c.BestParticle = slices.Clone(j.BestParticle)
	c.cancel = nil
	return &c
}

// JobManager manages the lifecycle of jobs. Getters return copies, so
// callers may read them without holding the manager's lock.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob retrieves a copy of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns copies of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].StartTime.Before(jobs[k].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}

// CancelJob requests cancellation of a pending or running job. A running
// job stops at the next iteration boundary and is marked cancelled by its
// worker; a pending job is marked cancelled immediately.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists {
		jm.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	if job.State.Terminal() {
		jm.mu.Unlock()
		return ErrJobFinished
	}

	cancel := job.cancel
	if cancel == nil {
		endTime := time.Now()
		job.State = StateCancelled
		job.EndTime = &endTime
	}
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	} else {
		broadcastState(jm, id, 0)
	}
	slog.Info("Job cancellation requested", "job_id", id)
	return nil
}

// start moves a pending job to running and attaches its cancel function.
// It fails if the job was cancelled before a worker picked it up.
func (jm *JobManager) start(id string, cancel context.CancelFunc) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.State != StatePending {
		return fmt.Errorf("job %s is %s, not pending", id, job.State)
	}
	job.State = StateRunning
	job.StartTime = time.Now()
	job.cancel = cancel
	return nil
}

// CancelAll cancels every job that has not finished.
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	ids := make([]string, 0, len(jm.jobs))
	for id, job := range jm.jobs {
		if !job.State.Terminal() {
			ids = append(ids, id)
		}
	}
	jm.mu.RUnlock()

	for _, id := range ids {
		jm.CancelJob(id)
	}
}
