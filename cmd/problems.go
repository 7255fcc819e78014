package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/problem"
)

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List available benchmark problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tBOUNDS\tDESCRIPTION")
		for _, name := range problem.Names() {
			b, err := problem.New(name, 1, 0)
			if err != nil {
				return err
			}
			lower, upper := b.Bounds()
			fmt.Fprintf(w, "%s\t[%g, %g]\t%s\n", name, lower[0], upper[0], problem.Describe(name))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(problemsCmd)
}
