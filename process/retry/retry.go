// Package retry periodically re-scans uploads whose first scan failed.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"smartreceipts/models"
	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/nfce"
)

const (
	defaultMaxAttempts = 5
	defaultBatchSize   = 50
)

// Uploads is the part of uploads.Service the job needs.
type Uploads interface {
	Failed(ctx context.Context, maxAttempts, limit int) ([]models.Upload, error)
	Process(ctx context.Context, up *models.Upload) (nfce.Receipt, error)
}

// Result summarises one run.
type Result struct {
	Retried   int
	Recovered int
}

type Service struct {
	scheduler   *gocron.Scheduler
	uploads     Uploads
	MaxAttempts int
	BatchSize   int

	mu                 sync.Mutex
	running            bool
	lastRunStartedAt   time.Time
	lastRunCompletedAt time.Time
}

func New(uploads Uploads) *Service {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Service{
		scheduler:   s,
		uploads:     uploads,
		MaxAttempts: defaultMaxAttempts,
		BatchSize:   defaultBatchSize,
	}
}

// Start builds a Service and schedules it on cronExpr until ctx is done.
func Start(ctx context.Context, uploads Uploads, cronExpr string) (*Service, error) {
	s := New(uploads)
	if err := s.Start(ctx, cronExpr); err != nil {
		return nil, err
	}
	return s, nil
}

// Start schedules RunOnce on cronExpr.
func (s *Service) Start(ctx context.Context, cronExpr string) error {
	logrus.WithField("cron", cronExpr).Info("starting failed-scan retry job")
	_, err := s.scheduler.Cron(cronExpr).Do(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("failed-scan retry")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retry job: %w", err)
	}
	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Service) Stop() {
	s.scheduler.Stop()
}

// RunOnce retries one batch of failed uploads. A call made while another
// run is in progress returns immediately with an empty result.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logrus.Warn("failed-scan retry already running")
		return Result{}, nil
	}
	s.running = true
	s.lastRunStartedAt = time.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRunCompletedAt = time.Now()
		s.mu.Unlock()
	}()

	ups, err := s.uploads.Failed(ctx, s.MaxAttempts, s.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("list failed uploads: %w", err)
	}

	var res Result
	for i := range ups {
		if ctx.Err() != nil {
			break
		}
		upCtx, _ := applog.WithCorrelationID(ctx)
		res.Retried++
		if _, err := s.uploads.Process(upCtx, &ups[i]); err == nil {
			res.Recovered++
		}
	}
	logrus.WithFields(logrus.Fields{"retried": res.Retried, "recovered": res.Recovered}).Info("failed-scan retry done")
	return res, nil
}

// LastRun returns when the last run started and completed.
func (s *Service) LastRun() (started, completed time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunStartedAt, s.lastRunCompletedAt
}
