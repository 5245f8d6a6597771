package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smartreceipts/models"
	"smartreceipts/pkg/auth"
	"smartreceipts/pkg/config"
)

// openDB connects to Postgres and, when enabled, migrates and seeds it.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		migrate(db)
	}
	if err := seedDB(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// migrate runs AutoMigrate per model so one failure does not block the rest.
// Roles go first so the users FK can be applied.
func migrate(db *gorm.DB) {
	for _, m := range []struct {
		name  string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"receipts", &models.Receipt{}},
		{"uploads", &models.Upload{}},
		{"refresh_tokens", &models.RefreshToken{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			logrus.WithError(err).Warnf("migration warning (%s)", m.name)
		}
	}
}

func seedDB(db *gorm.DB, cfg *config.Config) error {
	for _, r := range models.DefaultRoles() {
		role := r
		if err := db.Where("name = ?", role.Name).Attrs(role).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
	}

	if cfg.Auth.AdminPassword != "" {
		var count int64
		db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
		if count == 0 {
			svc := auth.NewService(db, cfg.Auth.JWTSecret)
			if _, err := svc.CreateUser(context.Background(), "admin", cfg.Auth.AdminPassword, models.RoleAdministrator); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			logrus.Info("seeded admin user")
		}
	}

	if err := os.MkdirAll(cfg.Server.UploadBase, 0755); err != nil {
		logrus.WithError(err).Warnf("failed to create upload base dir %s", cfg.Server.UploadBase)
	}
	return nil
}
