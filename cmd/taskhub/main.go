package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra root
	Use:   "taskhub",
	Short: "Department-scoped task tracking service",
	Long: `taskhub tracks projects and tasks per department.
Tasks move through BACKLOG, IN_ANALYSIS, IN_PROGRESS, BLOCKED, COMPLETED and
CANCELLED; every state change is recorded in the task history. Configuration
is read from TASKHUB_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(bootstrapAdminCmd())
	rootCmd.AddCommand(transitionsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("taskhub failed")
	}
}

// setupLogging configures the global zerolog logger from TASKHUB_LOG_LEVEL
// and TASKHUB_LOG_FORMAT ("text" for console output, JSON otherwise).
func setupLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("TASKHUB_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("TASKHUB_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
