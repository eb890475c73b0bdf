package main

import (
	"os"

	"github.com/rzbill/flume/internal/cmd/cli"
	logpkg "github.com/rzbill/flume/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect FLUME_LOG_LEVEL / FLUME_LOG_FORMAT before flags are parsed
	// so early failures are still logged the way the user asked.
	level := os.Getenv("FLUME_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if os.Getenv("FLUME_LOG_FORMAT") == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	app := &cli.App{Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "flume",
		Short: "Flume durable queue CLI",
		Long: `Flume is an embedded durable FIFO queue engine. This CLI operates on a
data directory directly; there is no server process.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if lv, _ := cmd.Flags().GetString("log-level"); lv != "" {
				p, err := logpkg.ParseLevel(lv)
				if err != nil {
					return err
				}
				logger.SetLevel(p)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "",
		"Data directory (if not specified, uses OS-specific application data directory)")
	rootCmd.PersistentFlags().StringVar(&app.Fsync, "fsync", "always",
		"Fsync mode: always|interval|never")
	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "",
		"Config file (.json, .yaml, .yml)")
	rootCmd.PersistentFlags().String("log-level", os.Getenv("FLUME_LOG_LEVEL"),
		"Log level: debug|info|warn|error")

	rootCmd.AddCommand(
		cli.NewQueueCommand(app),
		cli.NewConsumerCommand(app),
		cli.NewEnqueueCommand(app),
		cli.NewDequeueCommand(app),
		cli.NewPeekCommand(app),
		cli.NewAckCommand(app),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
