package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dpm2/maintenance-api/internal/app"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <request-id>",
	Short: "Assign the best technician to a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid request id %q", args[0])
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			rec, err := a.Dispatcher.DispatchTechnician(ctx, uint(id))
			if err != nil {
				return err
			}
			cmd.Printf("request %d assigned to technician %d (score %.4f)\n", rec.RequestID, rec.TechnicianID, rec.Score)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}
