package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/internal/services"
)

// Scheduler runs retrain-and-batch cycles on a fixed interval. The first
// cycle runs immediately; the loop stops when the context is canceled.
type Scheduler struct {
	engine   *services.Engine
	interval time.Duration
	logger   *logrus.Logger
}

func NewScheduler(engine *services.Engine, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("Scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	started := time.Now()

	if err := s.engine.TrainModels(ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled training failed")
		return
	}
	s.engine.ClearCache(ctx)

	n, err := s.engine.BatchRecommendations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled batch run failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"students": n,
		"elapsed":  time.Since(started).String(),
	}).Info("Scheduled cycle complete")
}
