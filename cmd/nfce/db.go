package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartreceipts/models"
	"smartreceipts/pkg/auth"
	"smartreceipts/process/sanitize"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance (needs DB_DSN)",
}

var dbSanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Truncate application tables",
	Long:  `Destructive. Runs as a dry-run unless --dry-run=false --yes is given.`,
	Args:  cobra.NoArgs,
	RunE:  runDBSanitize,
}

var dbPruneCmd = &cobra.Command{
	Use:   "prune-tokens",
	Short: "Delete revoked and expired refresh tokens",
	Args:  cobra.NoArgs,
	RunE:  runDBPrune,
}

var (
	sanitizeDryRun bool
	sanitizeYes    bool
	sanitizeReseed bool
	sanitizeTables string
)

func init() {
	f := dbSanitizeCmd.Flags()
	f.BoolVar(&sanitizeDryRun, "dry-run", true, "show what would be truncated")
	f.BoolVar(&sanitizeYes, "yes", false, "confirm the destructive action")
	f.BoolVar(&sanitizeReseed, "reseed", false, "recreate roles and the admin user (ADMIN_PASSWORD) afterwards")
	f.StringVar(&sanitizeTables, "tables", sanitize.DefaultTables, "comma separated tables to truncate")
	dbCmd.AddCommand(dbSanitizeCmd)
	dbCmd.AddCommand(dbPruneCmd)
	rootCmd.AddCommand(dbCmd)
}

func openDB() (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func runDBSanitize(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	valid, rejected := sanitize.ParseTables(sanitizeTables)
	for _, r := range rejected {
		fmt.Fprintf(out, "warning: skipping invalid table name %q\n", r)
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	existing, err := sanitize.ExistingTables(cmd.Context(), db, valid)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
		return nil
	}
	fmt.Fprintln(out, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(out, " - %s\n", t)
	}
	if sanitizeDryRun {
		fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !sanitizeYes {
		fmt.Fprintln(out, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}
	if err := sanitize.Truncate(cmd.Context(), db, existing, out); err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	if !sanitizeReseed {
		return nil
	}
	for _, r := range models.DefaultRoles() {
		role := r
		if err := db.Where("name = ?", role.Name).Attrs(role).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("ensure role %s: %w", role.Name, err)
		}
	}
	if cfg.Auth.AdminPassword == "" {
		fmt.Fprintln(out, "ADMIN_PASSWORD empty; admin user not recreated")
		return nil
	}
	svc := auth.NewService(db, cfg.Auth.JWTSecret)
	if _, err := svc.CreateUser(cmd.Context(), "admin", cfg.Auth.AdminPassword, models.RoleAdministrator); err != nil {
		return fmt.Errorf("reseed admin: %w", err)
	}
	fmt.Fprintln(out, "reseeded roles and admin user")
	return nil
}

func runDBPrune(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	n, err := sanitize.PruneRefreshTokens(cmd.Context(), db, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d refresh tokens\n", n)
	return nil
}
