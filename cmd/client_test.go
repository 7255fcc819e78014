package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/competitiveswarm/internal/server"
	"github.com/cwbudde/competitiveswarm/internal/store"
)

// startTestServer serves the job API backed by a temporary store and points
// the client commands at it.
func startTestServer(t *testing.T) {
	t.Helper()
	fsStore, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := server.NewServer("", fsStore)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})

	original := serverURL
	serverURL = ts.URL
	t.Cleanup(func() { serverURL = original })
}

func submitJob(t *testing.T, body string) string {
	t.Helper()
	var job server.Job
	resp, err := http.Post(serverURL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	return job.ID
}

func waitForState(t *testing.T, jobID string, done func(server.JobState) bool) server.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var status server.JobStatus
		if err := apiRequest(http.MethodGet, "/api/v1/jobs/"+jobID+"/status", &status); err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		if status.Job != nil && done(status.State) {
			return *status.Job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach the expected state", jobID)
	return server.Job{}
}

const quickJob = `{"problem":"sphere","dimension":3,"populationSize":20,"maxIters":50,"seed":7}`

func TestStatusCommand_ListAndShow(t *testing.T) {
	startTestServer(t)

	cmd, out := testCommand("")
	if err := runStatus(cmd, nil); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
	if !strings.Contains(out.String(), "No jobs found") {
		t.Errorf("unexpected output for empty server:\n%s", out.String())
	}

	jobID := submitJob(t, quickJob)
	waitForState(t, jobID, func(s server.JobState) bool { return s == server.StateCompleted })

	out.Reset()
	if err := runStatus(cmd, nil); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
	for _, want := range []string{jobID, "completed", "sphere", "Total jobs: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := runStatus(cmd, []string{jobID}); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
	for _, want := range []string{"State: completed", "Problem: sphere (D=3)", "Iterations: 50", "Best particle:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	startTestServer(t)

	cmd, _ := testCommand("")
	err := runStatus(cmd, []string{"missing"})
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("expected job not found, got %v", err)
	}
}

func TestCancelCommand(t *testing.T) {
	startTestServer(t)

	jobID := submitJob(t, `{"problem":"rastrigin","dimension":20,"populationSize":40,"runTimeSeconds":30}`)
	waitForState(t, jobID, func(s server.JobState) bool { return s == server.StateRunning })

	cmd, out := testCommand("")
	if err := runCancel(cmd, []string{jobID}); err != nil {
		t.Fatalf("runCancel failed: %v", err)
	}
	if !strings.Contains(out.String(), "Cancellation requested") {
		t.Errorf("unexpected output: %s", out.String())
	}

	waitForState(t, jobID, func(s server.JobState) bool { return s == server.StateCancelled })

	err := runCancel(cmd, []string{jobID})
	if err == nil || !strings.Contains(err.Error(), "already finished") {
		t.Errorf("expected already finished error, got %v", err)
	}

	err = runCancel(cmd, []string{"missing"})
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("expected job not found, got %v", err)
	}
}

func TestTraceCommand(t *testing.T) {
	startTestServer(t)

	jobID := submitJob(t, quickJob)
	waitForState(t, jobID, func(s server.JobState) bool { return s.Terminal() })

	traceTail = 5
	traceJSON = false
	t.Cleanup(func() { traceTail = 0 })

	cmd, out := testCommand("")
	if err := runTrace(cmd, []string{jobID}); err != nil {
		t.Fatalf("runTrace failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header plus 5 entries, got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[len(lines)-1], "50") {
		t.Errorf("last entry should be iteration 50: %q", lines[len(lines)-1])
	}
}

func TestPrintTrace_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := printTrace(&out, nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No trace entries.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
