package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartreceipts/models"
	"smartreceipts/pkg/auth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage server users (needs DB_DSN)",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserCreate,
}

var userResetCmd = &cobra.Command{
	Use:   "reset-password <username> <password>",
	Short: "Set a new password for an existing user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserReset,
}

var userAdmin bool

func init() {
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "give the user the administrator role")
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userResetCmd)
	rootCmd.AddCommand(userCmd)
}

func authService() (*auth.Service, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return auth.NewService(db, cfg.Auth.JWTSecret), nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	svc, err := authService()
	if err != nil {
		return err
	}
	role := models.RoleUser
	if userAdmin {
		role = models.RoleAdministrator
	}
	u, err := svc.CreateUser(cmd.Context(), args[0], args[1], role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user id=%d username=%s role=%s\n", u.ID, u.Username, role)
	return nil
}

func runUserReset(cmd *cobra.Command, args []string) error {
	svc, err := authService()
	if err != nil {
		return err
	}
	if err := svc.SetPassword(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
	return nil
}
