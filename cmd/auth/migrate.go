package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aixasz/AixaszSampleProject/internal/auth/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and print the schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := app.OpenStore(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		version, dirty, err := db.SchemaVersion()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		logger.Info("database migrated", "file", cfg.Database.File, "version", version, "dirty", dirty)
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
		return nil
	},
}
