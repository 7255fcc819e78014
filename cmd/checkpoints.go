package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/store"
)

var (
	checkpointDataDir string
	keepLast          int
	olderThanDays     int
	forceClean        bool
	cleanOrphans      bool
)

// orphanGrace protects the traces of jobs that may still be starting up.
const orphanGrace = time.Hour

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage saved results",
	Long: `Manage the checkpoints written by traced runs and server jobs.
Each checkpoint records the best particle of a finished or interrupted run
together with the configuration that produced it.`,
}

var listCheckpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available checkpoints",
	Long:  `Display all checkpoints with job ID, timestamp, problem, algorithm, iteration, fitness and size on disk.`,
	RunE:  runListCheckpoints,
}

var showCheckpointCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one checkpoint including its best particle",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowCheckpoint,
}

var cleanCheckpointsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old checkpoints",
	Long: `Delete old checkpoints based on retention policy.
You can keep only the newest N checkpoints or delete checkpoints older than N days.
Deleting a checkpoint also removes the job's trace.

With --orphans, job directories holding only a trace (jobs that failed or were
cancelled before their first checkpoint) are removed as well, subject to
--older-than or, without it, to a one hour grace period.`,
	RunE: runCleanCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)

	checkpointsCmd.AddCommand(listCheckpointsCmd)
	checkpointsCmd.AddCommand(showCheckpointCmd)
	checkpointsCmd.AddCommand(cleanCheckpointsCmd)

	checkpointsCmd.PersistentFlags().StringVar(&checkpointDataDir, "data-dir", "./data", "Base directory for checkpoint storage")

	cleanCheckpointsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N checkpoints (0 = keep all)")
	cleanCheckpointsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete checkpoints older than N days (0 = no age limit)")
	cleanCheckpointsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
	cleanCheckpointsCmd.Flags().BoolVar(&cleanOrphans, "orphans", false, "Also delete job directories that hold a trace but no checkpoint")
}

func runListCheckpoints(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	checkpointStore, err := store.NewFSStore(checkpointDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No checkpoints found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tTIMESTAMP\tPROBLEM\tALGORITHM\tITERATION\tBEST FITNESS\tSIZE")
	fmt.Fprintln(w, "------\t---------\t-------\t---------\t---------\t------------\t----")

	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := getDirSize(checkpointStore.JobDir(info.JobID)); err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.6g\t%s\n",
			shortID(info.JobID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%s/%d", info.Problem, info.Dimension),
			info.Algorithm,
			info.Iteration,
			info.BestFitness,
			sizeStr,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal checkpoints: %d\n", len(infos))
	return nil
}

func runShowCheckpoint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	checkpointStore, err := store.NewFSStore(checkpointDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	cp, err := checkpointStore.LoadCheckpoint(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", cp.JobID)
	fmt.Fprintf(out, "Saved: %s\n", cp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(out, "Problem: %s (D=%d)\n", cp.Config.Problem, cp.Config.Dimension)
	fmt.Fprintf(out, "Algorithm: %s\n", algorithmName(cp.Config.Algorithm))
	fmt.Fprintf(out, "Iteration: %d\n", cp.Iteration)
	fmt.Fprintf(out, "Best fitness: %.6g\n", cp.BestFitness)
	fmt.Fprintf(out, "Best particle: %v\n", cp.BestParticle)
	return nil
}

func runCleanCheckpoints(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if keepLast == 0 && olderThanDays == 0 && !cleanOrphans {
		return fmt.Errorf("must specify --keep-last, --older-than or --orphans")
	}

	checkpointStore, err := store.NewFSStore(checkpointDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	toDelete := selectCheckpointsForDeletion(infos, keepLast, olderThanDays)

	var orphans []store.OrphanTrace
	if cleanOrphans {
		all, err := checkpointStore.ListOrphanTraces()
		if err != nil {
			return fmt.Errorf("failed to list orphan traces: %w", err)
		}
		orphans = selectOrphansForDeletion(all, olderThanDays)
	}

	if len(toDelete) == 0 && len(orphans) == 0 {
		fmt.Fprintln(out, "Nothing matches deletion criteria.")
		return nil
	}

	if len(toDelete) > 0 {
		fmt.Fprintf(out, "Found %d checkpoint(s) to delete:\n", len(toDelete))
		for _, info := range toDelete {
			fmt.Fprintf(out, "  - %s (%s, iteration %d, %s)\n",
				shortID(info.JobID),
				info.Problem,
				info.Iteration,
				info.Timestamp.Format("2006-01-02 15:04:05"),
			)
		}
	}
	if len(orphans) > 0 {
		fmt.Fprintf(out, "Found %d trace-only job(s) to delete:\n", len(orphans))
		for _, o := range orphans {
			fmt.Fprintf(out, "  - %s (trace, %s)\n", shortID(o.JobID), o.ModTime.Format("2006-01-02 15:04:05"))
		}
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := checkpointStore.DeleteCheckpoint(info.JobID); err != nil {
			slog.Error("Failed to delete checkpoint", "job_id", info.JobID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted checkpoint", "job_id", info.JobID)
		deleted++
	}
	for _, o := range orphans {
		if err := checkpointStore.DeleteOrphanTrace(o.JobID); err != nil {
			slog.Error("Failed to delete trace-only job", "job_id", o.JobID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted trace-only job", "job_id", o.JobID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d job(s), %d failed.\n", deleted, failed)
	return nil
}

// selectOrphansForDeletion keeps trace-only jobs older than the age limit.
// Jobs touched within orphanGrace are skipped since they may still be running.
func selectOrphansForDeletion(orphans []store.OrphanTrace, olderThanDays int) []store.OrphanTrace {
	cutoff := time.Now().Add(-orphanGrace)
	if olderThanDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -olderThanDays)
	}

	var selected []store.OrphanTrace
	for _, o := range orphans {
		if o.ModTime.Before(cutoff) {
			selected = append(selected, o)
		}
	}
	return selected
}

// selectCheckpointsForDeletion applies the age and count policies. A
// checkpoint matched by both appears once.
func selectCheckpointsForDeletion(infos []store.CheckpointInfo, keepLast int, olderThanDays int) []store.CheckpointInfo {
	var toDelete []store.CheckpointInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.JobID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.CheckpointInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !selected[info.JobID] {
				toDelete = append(toDelete, info)
				selected[info.JobID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
