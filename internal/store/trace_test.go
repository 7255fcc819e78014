package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/cso"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	jobDir := filepath.Join(t.TempDir(), "jobs", "test-job-123")

	writer, err := NewTraceWriter(jobDir, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	now := time.Now()
	entries := []TraceEntry{
		{Iteration: 1, BestFitness: 10.0, MeanFitness: 40.0, Timestamp: now},
		{Iteration: 2, BestFitness: 8.0, MeanFitness: 30.5, Timestamp: now},
		{Iteration: 3, BestFitness: 8.0, MeanFitness: 22.25, Timestamp: now},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if writer.Path() != filepath.Join(jobDir, "trace.jsonl") {
		t.Errorf("Path = %s", writer.Path())
	}

	got, err := ReadTrace(jobDir)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i, e := range entries {
		if got[i].Iteration != e.Iteration || got[i].BestFitness != e.BestFitness || got[i].MeanFitness != e.MeanFitness {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], e)
		}
		if !got[i].Timestamp.Equal(e.Timestamp) {
			t.Errorf("entry %d timestamp = %v, want %v", i, got[i].Timestamp, e.Timestamp)
		}
	}
}

func TestTraceWriter_ReportsProgress(t *testing.T) {
	jobDir := t.TempDir()

	writer, err := NewTraceWriter(jobDir, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	var reporter cso.Reporter = writer
	for i := 1; i <= 5; i++ {
		reporter.Report(cso.Progress{Iteration: i, BestFitness: 1 / float64(i), MeanFitness: 2 / float64(i)})
	}
	if err := writer.Err(); err != nil {
		t.Fatalf("unexpected report error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := ReadTrace(jobDir)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(got))
	}
	if got[4].Iteration != 5 || got[4].BestFitness != 0.2 {
		t.Errorf("last entry = %+v", got[4])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Report should stamp entries")
	}
}

func TestTraceWriter_AppendMode(t *testing.T) {
	jobDir := t.TempDir()

	for run := 0; run < 2; run++ {
		writer, err := NewTraceWriter(jobDir, true)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		writer.Write(TraceEntry{Iteration: run + 1, Timestamp: time.Now()})
		writer.Close()
	}

	got, err := ReadTrace(jobDir)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("append mode: expected 2 entries, got %d", len(got))
	}

	// Truncate mode starts over.
	writer, err := NewTraceWriter(jobDir, false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()

	got, err = ReadTrace(jobDir)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("truncate mode: expected empty trace, got %d entries", len(got))
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	jobDir := t.TempDir()

	writer, err := NewTraceWriter(jobDir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	writer.Write(TraceEntry{Iteration: 1, BestFitness: 3, Timestamp: time.Now()})

	info, _ := os.Stat(writer.Path())
	if info.Size() != 0 {
		t.Errorf("entries should stay buffered before Flush, file size %d", info.Size())
	}

	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	info, _ = os.Stat(writer.Path())
	if info.Size() == 0 {
		t.Error("Flush did not write buffered entries")
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	jobDir := t.TempDir()

	writer, err := NewTraceWriter(jobDir, false)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				writer.Report(cso.Progress{Iteration: g*50 + i})
			}
		}(g)
	}
	wg.Wait()
	writer.Close()

	got, err := ReadTrace(jobDir)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 500 {
		t.Errorf("expected 500 entries, got %d", len(got))
	}
}

func TestTraceReader_Sequential(t *testing.T) {
	jobDir := t.TempDir()
	writer, _ := NewTraceWriter(jobDir, false)
	writer.Write(TraceEntry{Iteration: 1})
	writer.Write(TraceEntry{Iteration: 2})
	writer.Close()

	reader, err := NewTraceReader(jobDir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	for want := 1; want <= 2; want++ {
		entry, err := reader.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", want, err)
		}
		if entry.Iteration != want {
			t.Errorf("Iteration = %d, want %d", entry.Iteration, want)
		}
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestTraceReader_Errors(t *testing.T) {
	if _, err := NewTraceReader(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing trace: expected ErrNotFound, got %v", err)
	}

	jobDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(jobDir, "trace.jsonl"), []byte("{\"iteration\":1}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTrace(jobDir); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestDeleteTrace(t *testing.T) {
	jobDir := t.TempDir()
	writer, _ := NewTraceWriter(jobDir, false)
	writer.Close()

	if err := DeleteTrace(jobDir); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(jobDir, "trace.jsonl")); !os.IsNotExist(err) {
		t.Error("trace file should be removed")
	}
	if err := DeleteTrace(jobDir); err != nil {
		t.Errorf("deleting a missing trace should succeed, got %v", err)
	}
}

func TestListAndDeleteOrphanTraces(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	// A job that failed before its first checkpoint: trace only.
	writer, err := NewTraceWriter(s.JobDir("failed-job"), false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	writer.Write(TraceEntry{Iteration: 1, BestFitness: 3, Timestamp: time.Now()})
	writer.Close()

	// A finished job: trace and checkpoint.
	writer, err = NewTraceWriter(s.JobDir("done-job"), false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	writer.Close()
	cp := NewCheckpoint("done-job", []float64{0}, 0.1, 5, JobConfig{Problem: "sphere", Dimension: 1, PopulationSize: 2, MaxIters: 5})
	if err := s.SaveCheckpoint("done-job", cp); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	orphans, err := s.ListOrphanTraces()
	if err != nil {
		t.Fatalf("ListOrphanTraces failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].JobID != "failed-job" {
		t.Fatalf("expected only failed-job, got %+v", orphans)
	}

	if err := s.DeleteOrphanTrace("failed-job"); err != nil {
		t.Fatalf("DeleteOrphanTrace failed: %v", err)
	}
	if _, err := os.Stat(s.JobDir("failed-job")); !os.IsNotExist(err) {
		t.Error("orphan job directory should be removed")
	}
	if err := s.DeleteOrphanTrace("done-job"); err == nil {
		t.Error("a job with a checkpoint must not be deleted as an orphan")
	}
	if _, err := s.LoadCheckpoint("done-job"); err != nil {
		t.Errorf("checkpoint should survive, got %v", err)
	}
}
