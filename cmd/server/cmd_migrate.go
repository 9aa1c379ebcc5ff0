package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/signal-registry/internal/server"
)

// migrateCmd applies the schema and exits. serve does the same on start-up;
// this lets a deploy step prepare the database ahead of time.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info("database migrated", slog.String("database", cfg.DBPath))
		return nil
	},
}
