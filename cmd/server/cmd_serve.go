package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/signal-registry/internal/server"
)

// serveCmd runs the HTTP API until SIGINT/SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Start blocks until shutdown and closes the database on the way out.
	return srv.Start(ctx)
}
