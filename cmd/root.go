package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/competitiveswarm/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "competitiveswarm",
	Short: "Competitive swarm optimization of continuous benchmark functions",
	Long: `competitiveswarm minimizes box-bounded benchmark functions with the
competitive swarm optimizer, compares it against mayfly optimization,
and serves long-running jobs over HTTP with live progress streams.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logger.Setup(logLevel, logFormat, os.Stderr)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
}
