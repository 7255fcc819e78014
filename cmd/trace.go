package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/store"
)

var (
	traceJSON bool
	traceTail int
)

var traceCmd = &cobra.Command{
	Use:   "trace <job-id>",
	Short: "Print the convergence trace of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "Print the entries as JSON")
	traceCmd.Flags().IntVar(&traceTail, "tail", 0, "Only print the last N entries (0 = all)")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	var entries []store.TraceEntry
	if err := apiRequest(http.MethodGet, "/api/v1/jobs/"+args[0]+"/trace", &entries); err != nil {
		return err
	}
	if traceTail > 0 && len(entries) > traceTail {
		entries = entries[len(entries)-traceTail:]
	}
	return printTrace(cmd.OutOrStdout(), entries, traceJSON)
}

func printTrace(out io.Writer, entries []store.TraceEntry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No trace entries.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATION\tBEST FITNESS\tMEAN FITNESS\tTIMESTAMP")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%s\n", e.Iteration, e.BestFitness, e.MeanFitness, e.Timestamp.Format("15:04:05.000"))
	}
	return w.Flush()
}
