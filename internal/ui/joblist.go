// Package ui renders the HTML pages served at the root of the job server.
// The markup lives in joblist.templ; run templ generate after editing it.
package ui

import (
	"strconv"
	"strings"
	"time"
)

// JobListItem is the view model for one row of the job list.
type JobListItem struct {
	ID          string
	State       string
	Problem     string
	Dimension   int
	Algorithm   string
	Iterations  int
	BestFitness float64
	MeanFitness float64
	StartTime   time.Time
	EndTime     *time.Time
	Error       string
}

// Duration is the job's run time so far.
func (j JobListItem) Duration() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

func stateLabel(state string) string {
	if state == "" {
		return ""
	}
	return strings.ToUpper(state[:1]) + state[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatFitness(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
