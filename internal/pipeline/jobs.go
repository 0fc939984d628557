package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avisosperu/senamhi-tracker/internal/config"
	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// WarningFetcher pulls raw avisos for one department.
type WarningFetcher interface {
	FetchAvisos(ctx context.Context, department string) ([]domain.RawAviso, error)
}

// ForecastFetcher scrapes the forecast page for the wanted departments.
type ForecastFetcher interface {
	FetchForecasts(ctx context.Context, departments []string) ([]domain.LocationForecast, error)
}

// Jobs bundles the two scrape jobs with their collaborators. The forecast job
// carries retries and a persisted run record; the warnings job deliberately
// has neither, its fan-out over departments already tolerates per-department
// failures.
type Jobs struct {
	cfg        *config.Config
	warnings   WarningFetcher
	forecasts  ForecastFetcher
	reconciler *Reconciler
	runs       storage.RunStore
	store      storage.ForecastStore
	geosync    *GeometrySync
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewJobs(
	cfg *config.Config,
	warnings WarningFetcher,
	forecasts ForecastFetcher,
	reconciler *Reconciler,
	runs storage.RunStore,
	store storage.ForecastStore,
	geosync *GeometrySync,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Jobs {
	return &Jobs{
		cfg:        cfg,
		warnings:   warnings,
		forecasts:  forecasts,
		reconciler: reconciler,
		runs:       runs,
		store:      store,
		geosync:    geosync,
		logger:     logger,
		metrics:    metrics,
	}
}

// resolveDepartments turns an override list into the effective scrape targets.
func (j *Jobs) resolveDepartments(override []string) []string {
	if len(override) > 0 {
		return override
	}
	if j.cfg.ScrapeAllDepartments() {
		return domain.AllDepartments()
	}
	return j.cfg.Departments
}

// ScrapeWarnings fetches avisos for every target department, normalizes them
// and reconciles the batch. A department that fails to fetch is logged and
// skipped; the remaining departments still go through. When the geometry
// pipeline is wired in, an automatic sync pass follows the reconciliation.
func (j *Jobs) ScrapeWarnings(ctx context.Context, departments []string, force bool) (ReconcileResult, error) {
	targets := j.resolveDepartments(departments)
	start := domain.Now()
	j.logger.Info("warnings scrape started", "departments", len(targets), "force", force)

	var batch []domain.Warning
	for _, dept := range targets {
		raws, err := j.warnings.FetchAvisos(ctx, dept)
		if err != nil {
			j.logger.Error("fetch avisos failed", "department", dept, "error", err)
			j.metrics.FetchErrors.WithLabelValues("warnings").Inc()
			continue
		}
		batch = append(batch, domain.NormalizeAvisos(raws, dept, j.cfg.RetainExpired, j.logger)...)
	}

	res, err := j.reconciler.Reconcile(ctx, batch, force)
	if err != nil {
		return res, err
	}

	j.metrics.ScrapeDuration.WithLabelValues("warnings").Observe(domain.Now().Sub(start).Seconds())
	j.logger.Info("warnings scrape finished",
		"found", res.Found, "saved", res.Saved, "updated", res.Updated, "skipped", res.Skipped)

	if j.geosync != nil {
		if err := j.geosync.SyncActive(ctx); err != nil {
			j.logger.Error("automatic geometry sync failed", "error", err)
		}
	}
	return res, nil
}

// ScrapeForecasts runs the forecast job under a persisted run record. The
// page fetch is retried up to MaxRetries with a fixed delay; saving is not
// retried. When forecasts for the page's issue date are already stored the
// run finishes as skipped unless force is set, in which case the stale rows
// for that issue date are replaced.
func (j *Jobs) ScrapeForecasts(ctx context.Context, departments []string, force bool) error {
	targets := j.resolveDepartments(departments)
	start := domain.Now()

	recorded := targets
	if j.cfg.ScrapeAllDepartments() && len(departments) == 0 {
		recorded = []string{"ALL"}
	}

	run := &domain.ScrapeRun{
		StartedAt:   start,
		Status:      domain.RunRunning,
		Departments: recorded,
	}
	if err := j.runs.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run record: %w", err)
	}
	j.logger.Info("forecast scrape started", "run_id", run.ID, "departments", recorded)

	forecasts, fetchErr := j.fetchForecastsWithRetry(ctx, targets)
	if fetchErr != nil {
		j.finishRun(ctx, run, domain.RunFailed, 0, 0, fetchErr.Error())
		return fmt.Errorf("forecast scrape failed: %w", fetchErr)
	}
	if len(forecasts) == 0 {
		j.finishRun(ctx, run, domain.RunFailed, 0, 0, "no forecasts found on page")
		return fmt.Errorf("forecast scrape failed: no forecasts found on page")
	}

	issuedAt := forecasts[0].IssuedAt
	exists, err := j.store.ForecastExistsForIssueDate(ctx, issuedAt)
	if err != nil {
		j.finishRun(ctx, run, domain.RunFailed, len(forecasts), 0, err.Error())
		return fmt.Errorf("check existing forecasts: %w", err)
	}

	if exists && !force {
		j.logger.Info("forecasts already stored for issue date, skipping",
			"issued_at", issuedAt.Format("2006-01-02"))
		j.finishRun(ctx, run, domain.RunSkipped, len(forecasts), 0,
			"data already exists for this issue date")
		return nil
	}
	if exists {
		deleted, err := j.store.DeleteForecastsByIssueDate(ctx, issuedAt)
		if err != nil {
			j.finishRun(ctx, run, domain.RunFailed, len(forecasts), 0, err.Error())
			return fmt.Errorf("replace existing forecasts: %w", err)
		}
		j.logger.Info("replaced existing forecasts", "deleted", deleted)
	}

	saved := 0
	for _, lf := range forecasts {
		n, err := j.store.SaveLocationForecasts(ctx, lf)
		saved += n
		if err != nil {
			j.logger.Warn("failed to save location forecasts",
				"location", lf.Location, "error", err)
		}
	}

	j.finishRun(ctx, run, domain.RunSuccess, len(forecasts), saved, "")
	j.metrics.ScrapeDuration.WithLabelValues("forecasts").Observe(domain.Now().Sub(start).Seconds())
	j.logger.Info("forecast scrape finished",
		"run_id", run.ID, "locations", len(forecasts), "saved", saved)
	return nil
}

func (j *Jobs) fetchForecastsWithRetry(ctx context.Context, targets []string) ([]domain.LocationForecast, error) {
	var lastErr error
	for attempt := 1; attempt <= j.cfg.MaxRetries; attempt++ {
		j.logger.Info("forecast fetch attempt", "attempt", attempt, "max", j.cfg.MaxRetries)

		forecasts, err := j.forecasts.FetchForecasts(ctx, targets)
		if err == nil {
			return forecasts, nil
		}
		lastErr = err
		j.logger.Error("forecast fetch failed", "attempt", attempt, "error", err)
		j.metrics.FetchErrors.WithLabelValues("forecasts").Inc()

		if attempt < j.cfg.MaxRetries {
			if !domain.Sleep(ctx, j.cfg.RetryDelay) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (j *Jobs) finishRun(ctx context.Context, run *domain.ScrapeRun, status domain.RunStatus, locations, saved int, message string) {
	now := domain.Now()
	run.FinishedAt = &now
	run.Status = status
	run.LocationsScraped = locations
	run.ForecastsSaved = saved
	run.ErrorMessage = message

	if err := j.runs.FinishRun(ctx, run); err != nil {
		j.logger.Error("failed to finalize run record", "run_id", run.ID, "error", err)
	}
	j.metrics.RunsTotal.WithLabelValues("forecasts", string(status)).Inc()
}
