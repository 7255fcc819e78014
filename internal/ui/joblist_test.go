package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, jobs []JobListItem) string {
	t.Helper()
	var buf bytes.Buffer
	if err := JobList(jobs).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

func TestJobList_Empty(t *testing.T) {
	body := render(t, nil)

	if !strings.HasPrefix(strings.ToLower(body), "<!doctype html>") {
		t.Error("expected a full HTML document")
	}
	if !strings.Contains(body, "No jobs yet") {
		t.Error("expected empty-state message")
	}
}

func TestJobList_Rows(t *testing.T) {
	end := time.Now()
	jobs := []JobListItem{
		{
			ID:          "0123456789abcdef",
			State:       "running",
			Problem:     "rastrigin",
			Dimension:   5,
			Algorithm:   "cso",
			Iterations:  42,
			BestFitness: 1.25,
			StartTime:   time.Now(),
		},
		{
			ID:        "fedcba9876543210",
			State:     "failed",
			Problem:   "sphere",
			Dimension: 2,
			Algorithm: "mayfly",
			StartTime: end.Add(-time.Second),
			EndTime:   &end,
			Error:     `fitness "exploded" <boom>`,
		},
	}

	body := render(t, jobs)

	for _, want := range []string{"01234567", "Running", "rastrigin (D=5)", "42", "1.25", "Failed", "mayfly", "1s"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if strings.Contains(body, "<boom>") {
		t.Error("error message must be escaped")
	}
	for _, want := range []string{
		`<a href="/api/v1/jobs/0123456789abcdef/status">`,
		`class="badge badge-running"`,
		`title="fitness &#34;exploded&#34; &lt;boom&gt;"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if strings.Count(body, `class="error"`) != 1 {
		t.Error("only the failed job should carry an error marker")
	}
}

func TestStateLabel(t *testing.T) {
	tests := map[string]string{"": "", "running": "Running", "cancelled": "Cancelled"}
	for in, want := range tests {
		if got := stateLabel(in); got != want {
			t.Errorf("stateLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
