package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/ocr/engines"
	"smartreceipts/pkg/uploads"
	"smartreceipts/process/retry"
)

// Runs the failed-scan retry job once, e.g. after switching OCR engine.
func main() {
	maxAttempts := flag.Int("max-attempts", 5, "skip uploads already tried this many times (0 = no limit)")
	batch := flag.Int("batch", 200, "maximum uploads to retry")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	applog.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Database.DSN == "" {
		logrus.Fatal("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("open db")
	}

	ctx := context.Background()
	scanner, err := engines.NewScanner(ctx, cfg.OCR)
	if err != nil {
		logrus.WithError(err).Fatal("ocr engine")
	}
	defer scanner.Close()

	job := retry.New(uploads.New(db, scanner, cfg.Server.UploadBase))
	job.MaxAttempts = *maxAttempts
	job.BatchSize = *batch
	res, err := job.RunOnce(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("retry")
	}
	fmt.Printf("retried=%d recovered=%d\n", res.Retried, res.Recovered)
}
