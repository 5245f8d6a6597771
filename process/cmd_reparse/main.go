package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartreceipts/models"
	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/store"
	"smartreceipts/process/reparse"
)

func main() {
	username := flag.String("user", "", "only re-parse this user's receipts (default: all users)")
	dry := flag.Bool("dry-run", true, "dry-run: don't write changes")
	local := flag.Bool("local", false, "re-parse the local bbolt store (BOLT_PATH) instead of Postgres")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	applog.Setup(cfg.Log.Level, cfg.Log.Format)

	st, err := openStore(cfg, *local, *username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(2)
	}
	defer st.Close()

	res, err := reparse.Run(context.Background(), st, nil, *dry, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("scanned=%d changed=%d dry_run=%v\n", res.Scanned, len(res.Changes), *dry)
}

func openStore(cfg *config.Config, local bool, username string) (store.Store, error) {
	if local {
		return store.NewBolt(cfg.Local.BoltPath)
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DB_DSN not set; export and retry")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	g := store.NewGorm(db)
	if username == "" {
		return g, nil
	}
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return g.ForUser(u.ID), nil
}
