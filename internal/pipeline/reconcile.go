// Package pipeline orchestrates the scrape jobs: fetching warnings and
// forecasts, reconciling them against stored state, syncing hazard-zone
// geometries and driving the interval scheduler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Found   int
	Saved   int
	Updated int
	Skipped int
}

// Reconciler applies scraped warning batches to the store.
type Reconciler struct {
	store   storage.WarningStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewReconciler(store storage.WarningStore, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{store: store, logger: logger, metrics: metrics}
}

// Reconcile merges a scraped batch into the store. Within the batch the first
// record per (warning number, department) identity wins. New identities are
// inserted; existing ones are left untouched unless force is set, in which
// case their mutable fields are rewritten in place and the row id survives.
func (r *Reconciler) Reconcile(ctx context.Context, warnings []domain.Warning, force bool) (ReconcileResult, error) {
	var res ReconcileResult
	seen := make(map[domain.WarningKey]bool, len(warnings))

	for _, w := range warnings {
		key := w.Key()
		if seen[key] {
			r.logger.Debug("duplicate warning in batch",
				"number", w.WarningNumber, "department", w.Department)
			continue
		}
		seen[key] = true
		res.Found++
		r.metrics.WarningsScraped.Inc()

		existing, err := r.store.FindWarning(ctx, w.WarningNumber, w.Department)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("find warning %s/%s: %w", w.WarningNumber, w.Department, err)
		}

		switch {
		case existing == nil:
			if err := r.store.InsertWarning(ctx, &w); err != nil {
				return res, fmt.Errorf("insert warning %s/%s: %w", w.WarningNumber, w.Department, err)
			}
			res.Saved++
			r.metrics.WarningsSaved.Inc()
			r.logger.Info("warning saved",
				"number", w.WarningNumber, "department", w.Department,
				"severity", w.Severity, "status", w.Status)

		case !force:
			res.Skipped++
			r.metrics.WarningsSkipped.Inc()
			r.logger.Debug("warning exists, skipping",
				"number", w.WarningNumber, "department", w.Department)

		default:
			w.ID = existing.ID
			if err := r.store.UpdateWarning(ctx, &w); err != nil {
				return res, fmt.Errorf("update warning %s/%s: %w", w.WarningNumber, w.Department, err)
			}
			res.Updated++
			r.metrics.WarningsUpdated.Inc()
			r.logger.Info("warning updated",
				"number", w.WarningNumber, "department", w.Department,
				"severity", w.Severity, "status", w.Status)
		}
	}

	return res, nil
}
