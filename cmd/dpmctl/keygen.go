package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dpm2/maintenance-api/internal/app"
	"github.com/dpm2/maintenance-api/pkg/database"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <name>",
	Short: "Issue an HMAC integration key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if a.Config.APIMasterSecret == "" {
				cmd.PrintErrln("warning: API_MASTER_SECRET is not set, the key only works for this process")
			}
			key := a.Auth.GenerateHMACKey(args[0])
			if err := a.Store.CreateAPIKey(ctx, &database.APIKey{Key: key, Name: args[0]}); err != nil {
				return err
			}
			cmd.Printf("Generated Key for %s:\n%s\n", args[0], key)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
