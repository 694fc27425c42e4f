package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aixasz/AixaszSampleProject/internal/auth/app"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage signing keys",
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the persisted signing key ring",
	Long: `Generate a new current signing key and demote the old one. Requires
keys.storage_mode=persistent. Running servers pick the new key up on restart;
use POST /admin/keys/rotate to rotate a live server.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		res, err := app.RotateKeys(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "current key %s (%s)\n", res.Current.Kid, res.Current.Algorithm)
		if len(res.Dropped) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", strings.Join(res.Dropped, ", "))
		}
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysRotateCmd)
}
