package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/auth"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/ocr/engines"
	"smartreceipts/pkg/uploads"
	"smartreceipts/process/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	applog.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := openDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database")
	}

	// `smartreceipts migrate` runs migrations and seeding, then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		fmt.Println("migration and seeding completed")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := engines.NewScanner(ctx, cfg.OCR)
	if err != nil {
		logrus.WithError(err).Fatal("ocr engine")
	}
	defer scanner.Close()

	srv := &server{
		db:      db,
		auth:    auth.NewService(db, cfg.Auth.JWTSecret),
		scanner: scanner,
		uploads: uploads.New(db, scanner, cfg.Server.UploadBase),
	}

	if cfg.Retry.Enabled {
		sched, err := retry.Start(ctx, srv.uploads, cfg.Retry.Cron)
		if err != nil {
			logrus.WithError(err).Fatal("retry scheduler")
		}
		defer sched.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), applog.Middleware())
	srv.routes(r)

	httpSrv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		<-ctx.Done()
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()
	logrus.WithField("port", cfg.Server.Port).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("http server")
	}
}
