// Command signal-registry runs the signal registry HTTP service.
//
// The cmd/ directory holds executable entry points; all real logic lives in
// internal/. main only reads configuration, builds the logger and hands over
// to the chosen subcommand:
//
//	signal-registry              same as "serve"
//	signal-registry serve        run the HTTP API
//	signal-registry migrate      create or upgrade the database schema, then exit
//	signal-registry token --user 7
//	                             print a JWT for local testing
//
// All settings come from environment variables (see internal/config).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/signal-registry/internal/config"
)

var (
	// cfg and logger are set by rootCmd's PersistentPreRunE before any subcommand runs.
	cfg    config.Config
	logger *slog.Logger
)

// rootCmd represents the base command. Without a subcommand it serves.
var rootCmd = &cobra.Command{
	Use:   "signal-registry",
	Short: "Registry of user signals backed by CSV files in object storage",
	Long: `signal-registry maps (user, signal ID) pairs to CSV files in an S3 bucket
and serves create, modify, read and delete operations over HTTP.

Configuration is read from the environment, e.g. PORT, DB_PATH,
SIGNAL_BUCKET, AWS_ID, AWS_SECRET, JWT_SECRET, RESPONSE_MODE.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level, _ := cfg.SlogLevel() // already checked by Validate
		logger = newLogger(os.Stdout, cfg.LogFormat, level)
		slog.SetDefault(logger)
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

// newLogger builds the process logger. format is "json" or "text".
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
