package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(cmd.OutOrStdout())
	}
	return showJobStatus(cmd.OutOrStdout(), args[0])
}

func listJobs(out io.Writer) error {
	var jobs []server.Job
	if err := apiRequest(http.MethodGet, "/api/v1/jobs", &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tSTATE\tALGORITHM\tPROBLEM\tDIM\tITERATIONS\tBEST FITNESS")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			job.ID,
			job.State,
			algorithmName(job.Config.Algorithm),
			job.Config.Problem,
			job.Config.Dimension,
			job.Iterations,
			formatFitness(job),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal jobs: %d\n", len(jobs))
	return nil
}

func showJobStatus(out io.Writer, jobID string) error {
	var status server.JobStatus
	err := apiRequest(http.MethodGet, "/api/v1/jobs/"+jobID+"/status", &status)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}
	if status.Job == nil {
		return fmt.Errorf("empty status for job %s", jobID)
	}

	cfg := status.Config
	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n\n", status.State)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Algorithm: %s\n", algorithmName(cfg.Algorithm))
	fmt.Fprintf(out, "  Problem: %s (D=%d)\n", cfg.Problem, cfg.Dimension)
	fmt.Fprintf(out, "  Population: %d\n", cfg.PopulationSize)
	if cfg.RunTimeSeconds > 0 {
		fmt.Fprintf(out, "  Run time: %gs\n", cfg.RunTimeSeconds)
	}
	if cfg.MaxIters > 0 {
		fmt.Fprintf(out, "  Max iterations: %d\n", cfg.MaxIters)
	}
	fmt.Fprintf(out, "  Seed: %d\n\n", cfg.Seed)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iterations: %d\n", status.Iterations)
	fmt.Fprintf(out, "  Best fitness: %s\n", formatFitness(*status.Job))
	if status.Iterations > 0 {
		fmt.Fprintf(out, "  Mean fitness: %.6g\n", status.MeanFitness)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.EvalsPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f evals/sec\n", status.EvalsPerSecond)
	}
	if len(status.BestParticle) > 0 {
		fmt.Fprintf(out, "  Best particle: %v\n", status.BestParticle)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
	return nil
}

func algorithmName(name string) string {
	if name == "" {
		return "cso"
	}
	return name
}

func formatFitness(job server.Job) string {
	if job.Iterations == 0 && job.State != server.StateCompleted {
		return "-"
	}
	return fmt.Sprintf("%.6g", job.BestFitness)
}
