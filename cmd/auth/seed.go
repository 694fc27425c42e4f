package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aixasz/AixaszSampleProject/internal/auth/app"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision clients and users from a YAML seed file",
	Long: `Provision clients and users from a YAML seed file. Clients that already
exist (by client_id) and users that already exist (by username) are skipped,
so the command can be run repeatedly. Without --file the built-in sample
seed is applied.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		path := seedFile
		if path == "" {
			path = cfg.Seed.File
		}
		res, err := app.Seed(cmd.Context(), cfg, path, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clients: %d created, %d skipped\nusers: %d created, %d skipped\n",
			res.ClientsCreated, res.ClientsSkipped, res.UsersCreated, res.UsersSkipped)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "path to the seed YAML file")
}
