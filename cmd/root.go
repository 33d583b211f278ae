// Package cmd implements the guezi command line interface.
package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

var (
	verbose  bool
	jsonLogs bool

	// logger is built in the persistent pre-run and injected into every
	// component a command wires up.
	logger log.Logger = log.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "guezi",
	Short: "GUEZI - a grounded assistant for Rabbi Nachman of Breslov's teachings",
	Long: `GUEZI answers questions about the Breslov corpus (Likutei Moharan,
Sippurei Maasiyot, Sichot HaRan and more), grounding every answer on
retrieved passages with exact source citations.

Run "guezi ingest" once to build the index, then "guezi chat" to talk.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// .env is a convenience for local runs; absence is fine.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = log.New(log.Config{Level: level, JSON: jsonLogs})
		slog.SetDefault(logger)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log in JSON format")
}
