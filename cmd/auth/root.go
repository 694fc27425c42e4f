package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aixasz/AixaszSampleProject/internal/auth/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "auth",
	Short: "Aixasz OAuth2 authorization server",
	Long: `auth issues JWT access and identity tokens for the client_credentials,
password and refresh_token grants.

Configuration is read from --config (or ./config.yaml, /etc/aixasz/auth/config.yaml)
and AUTH_* environment variables, e.g. AUTH_KEYS_STORAGE_MODE=persistent.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(keysCmd)
}

// loadConfig is shared by every subcommand.
func loadConfig() (app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, app.NewLogger(cfg.Logging), nil
}
