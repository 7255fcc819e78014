// Package store persists job results and progress traces on the filesystem.
package store

// Store defines checkpoint persistence for optimization jobs.
// Implementations must be safe for concurrent use.
//
// Error conventions:
//   - ErrNotFound (via errors.Is) when a job has no checkpoint
//   - *ValidationError when a checkpoint is rejected on save
//   - other errors wrap the underlying I/O or encoding failure
type Store interface {
	// SaveCheckpoint validates and atomically writes the checkpoint for
	// jobID, replacing any previous one.
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error

	// LoadCheckpoint returns the checkpoint for jobID.
	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for every readable checkpoint.
	// Corrupt entries are skipped.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the job directory, including its trace.
	DeleteCheckpoint(jobID string) error

	// JobDir is the directory holding a job's checkpoint and trace.
	JobDir(jobID string) string
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a missing checkpoint or trace.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "checkpoint not found: " + e.JobID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
