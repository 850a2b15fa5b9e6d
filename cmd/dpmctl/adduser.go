package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpm2/maintenance-api/internal/app"
	"github.com/dpm2/maintenance-api/pkg/auth"
	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

var (
	addUserRole  string
	addUserFirst string
	addUserLast  string
)

var addUserCmd = &cobra.Command{
	Use:   "adduser <email>",
	Short: "Create an account with a generated password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.Role(addUserRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", addUserRole)
		}
		password, err := auth.GeneratePassword(10)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			u := &database.User{
				Email:        strings.ToLower(args[0]),
				PasswordHash: hash,
				Role:         role,
				FirstName:    addUserFirst,
				LastName:     addUserLast,
			}
			if err := a.Store.CreateUser(ctx, u); err != nil {
				return err
			}
			cmd.Printf("created %s user %d: %s / %s\n", u.Role, u.ID, u.Email, password)
			return nil
		})
	},
}

func init() {
	addUserCmd.Flags().StringVar(&addUserRole, "role", string(models.RoleTechnician), "Admin, Manager, Technician or Tenant")
	addUserCmd.Flags().StringVar(&addUserFirst, "first-name", "", "first name")
	addUserCmd.Flags().StringVar(&addUserLast, "last-name", "", "last name")
	rootCmd.AddCommand(addUserCmd)
}
