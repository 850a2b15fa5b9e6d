package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpm2/maintenance-api/internal/app"
	"github.com/dpm2/maintenance-api/internal/seed"
)

var seedValue int64

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty database with demo properties, technicians, tenants and requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedValue == 0 {
			seedValue = time.Now().UnixNano()
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			sum, err := seed.Run(ctx, a.Store, rand.New(rand.NewSource(seedValue)))
			if err != nil {
				return err
			}
			cmd.Printf("created %d properties, %d technicians, %d tenants, %d requests\n",
				sum.Properties, sum.Technicians, sum.Tenants, sum.Requests)
			cmd.Printf("manager1@example.com / %s, tenantN@example.com / %s\n", seed.ManagerPassword, seed.TenantPassword)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().Int64Var(&seedValue, "rand-seed", 0, "random seed (0 uses the clock)")
	rootCmd.AddCommand(seedCmd)
}
