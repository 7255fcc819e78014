package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/cso"
)

// TraceEntry is one line of trace.jsonl: the progress record of a completed
// iteration plus the time it was written.
type TraceEntry struct {
	Iteration   int       `json:"iteration"`
	BestFitness float64   `json:"bestFitness"`
	MeanFitness float64   `json:"meanFitness"`
	Timestamp   time.Time `json:"timestamp"`
}

// TraceWriter appends entries to a job's trace.jsonl through a buffer.
// It is safe for concurrent use and implements cso.Reporter.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	err    error
	now    func() time.Time
}

// NewTraceWriter opens <jobDir>/trace.jsonl, truncating it unless appendMode
// is set.
func NewTraceWriter(jobDir string, appendMode bool) (*TraceWriter, error) {
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	path := filepath.Join(jobDir, traceFile)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
		now:    time.Now,
	}, nil
}

// Write buffers one entry. It is written on Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return nil
}

// Report records a progress record. The first write error is kept and
// returned by Err; later records are dropped.
func (tw *TraceWriter) Report(p cso.Progress) {
	if tw.Err() != nil {
		return
	}
	err := tw.Write(TraceEntry{
		Iteration:   p.Iteration,
		BestFitness: p.BestFitness,
		MeanFitness: p.MeanFitness,
		Timestamp:   tw.now(),
	})
	if err != nil {
		tw.mu.Lock()
		tw.err = err
		tw.mu.Unlock()
		slog.Warn("Trace write failed", "path", tw.path, "error", err)
	}
}

// Err returns the first error seen by Report.
func (tw *TraceWriter) Err() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.err
}

// Flush writes buffered entries and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads entries back from a trace.jsonl file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace in jobDir. A missing file is reported as
// ErrNotFound.
func NewTraceReader(jobDir string) (*TraceReader, error) {
	file, err := os.Open(filepath.Join(jobDir, traceFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{JobID: filepath.Base(jobDir)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceReader{file: file, scanner: bufio.NewScanner(file)}, nil
}

// Read returns the next entry, or io.EOF at the end of the file.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads every remaining entry. An empty trace yields an empty slice.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	entries := []TraceEntry{}
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying file.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// ReadTrace loads the whole trace of a job.
func ReadTrace(jobDir string) ([]TraceEntry, error) {
	tr, err := NewTraceReader(jobDir)
	if err != nil {
		return nil, err
	}
	defer tr.Close()
	return tr.ReadAll()
}

// DeleteTrace removes a job's trace file. A missing file is not an error.
func DeleteTrace(jobDir string) error {
	err := os.Remove(filepath.Join(jobDir, traceFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete trace file: %w", err)
	}
	return nil
}

// OrphanTrace is a job directory that holds a trace but no checkpoint, as
// left behind by a job that failed or was cancelled before its first save.
type OrphanTrace struct {
	JobID   string
	ModTime time.Time
}

// ListOrphanTraces returns trace-only job directories, oldest first.
func (s *FSStore) ListOrphanTraces() ([]OrphanTrace, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "jobs"))
	if errors.Is(err, fs.ErrNotExist) {
		return []OrphanTrace{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	orphans := []OrphanTrace{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		jobID := entry.Name()
		if _, err := os.Stat(s.checkpointPath(jobID)); err == nil {
			continue
		}
		info, err := os.Stat(filepath.Join(s.JobDir(jobID), traceFile))
		if err != nil {
			continue
		}
		orphans = append(orphans, OrphanTrace{JobID: jobID, ModTime: info.ModTime()})
	}

	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].ModTime.Before(orphans[j].ModTime)
	})
	return orphans, nil
}

// DeleteOrphanTrace removes the trace of a checkpoint-less job and then its
// directory, which must be empty by then.
func (s *FSStore) DeleteOrphanTrace(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	dir := s.JobDir(jobID)
	if _, err := os.Stat(filepath.Join(dir, checkpointFile)); err == nil {
		return fmt.Errorf("job %s has a checkpoint", jobID)
	}
	if err := DeleteTrace(dir); err != nil {
		return err
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Orphan trace deleted", "job_id", jobID, "path", dir)
	return nil
}
