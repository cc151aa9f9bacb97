package ingest

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/backup"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// Scheduler drives the pipeline on wall-clock crons: a top-of-hour run across
// all sources and a more frequent crypto run. After every batch a vector
// backup is fired as a detached goroutine whose failure is only logged.
type Scheduler struct {
	pipeline *Pipeline
	backups  *backup.Service
	cron     *cron.Cron
}

func NewScheduler(pipeline *Pipeline, backups *backup.Service) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		backups:  backups,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Start(ctx context.Context, allSpec, cryptoSpec string) error {
	_, err := s.cron.AddFunc(allSpec, func() {
		s.pipeline.RunAll(ctx)
		s.fireBackup(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid all-sources cron spec %q: %w", allSpec, err)
	}

	_, err = s.cron.AddFunc(cryptoSpec, func() {
		if err := s.pipeline.RunSource(ctx, "crypto"); err != nil {
			logger.Error("scheduled crypto run failed", zap.Error(err))
		}
		s.fireBackup(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid crypto cron spec %q: %w", cryptoSpec, err)
	}

	s.cron.Start()
	logger.Info("ingestion scheduler started",
		zap.String("all_spec", allSpec),
		zap.String("crypto_spec", cryptoSpec),
	)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("ingestion scheduler stopped")
}

// fireBackup never blocks or fails the ingestion path.
func (s *Scheduler) fireBackup(ctx context.Context) {
	if s.backups == nil {
		return
	}
	go func() {
		path, err := s.backups.Run(ctx)
		if err != nil {
			logger.Warn("vector backup failed", zap.Error(err))
			return
		}
		logger.Info("vector backup written", zap.String("path", path))
	}()
}
