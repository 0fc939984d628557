package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/avisosperu/senamhi-tracker/internal/config"
	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
)

// Scheduler drives the two scrape jobs on their configured intervals from a
// single goroutine, so a slow job delays the next one rather than overlapping
// with it.
type Scheduler struct {
	jobs    *Jobs
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewScheduler(jobs *Jobs, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{jobs: jobs, cfg: cfg, logger: logger, metrics: metrics}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"forecast_interval", s.cfg.ForecastInterval,
		"warning_interval", s.cfg.WarningInterval,
		"start_immediately", s.cfg.StartImmediately)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	if s.cfg.StartImmediately {
		s.runForecasts(ctx)
		s.runWarnings(ctx)
	}

	nextForecast := domain.Now().Add(s.cfg.ForecastInterval)
	nextWarnings := domain.Now().Add(s.cfg.WarningInterval)

	for {
		next := nextForecast
		if nextWarnings.Before(next) {
			next = nextWarnings
		}
		if !domain.Sleep(ctx, next.Sub(domain.Now())) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}

		now := domain.Now()
		if !now.Before(nextForecast) {
			s.runForecasts(ctx)
			nextForecast = now.Add(s.cfg.ForecastInterval)
		}
		if !now.Before(nextWarnings) {
			s.runWarnings(ctx)
			nextWarnings = now.Add(s.cfg.WarningInterval)
		}
	}
}

func (s *Scheduler) runForecasts(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.jobs.ScrapeForecasts(ctx, nil, false); err != nil {
		s.logger.Error("scheduled forecast scrape failed", "error", err)
	}
	s.logger.Debug("scheduled forecast scrape done", "elapsed", time.Since(start))
}

func (s *Scheduler) runWarnings(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if _, err := s.jobs.ScrapeWarnings(ctx, nil, false); err != nil {
		s.logger.Error("scheduled warnings scrape failed", "error", err)
	}
	s.logger.Debug("scheduled warnings scrape done", "elapsed", time.Since(start))
}
