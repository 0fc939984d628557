package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
)

func makeWarning(number, department string, severity domain.Severity) domain.Warning {
	from := time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)
	return domain.Warning{
		WarningNumber: number,
		Department:    department,
		Severity:      severity,
		Status:        domain.StatusVigente,
		Title:         "Precipitaciones intensas",
		ValidFrom:     from,
		ValidUntil:    from.AddDate(0, 0, 2),
		IssuedAt:      from.AddDate(0, 0, -1),
		ScrapedAt:     from,
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetricsForTesting()

	t.Run("inserts new warnings", func(t *testing.T) {
		store := newFakeWarningStore()
		r := NewReconciler(store, testLogger(), metrics)

		res, err := r.Reconcile(ctx, []domain.Warning{
			makeWarning("418", "LIMA", domain.SeverityOrange),
			makeWarning("418", "CUSCO", domain.SeverityOrange),
			makeWarning("419", "LIMA", domain.SeverityYellow),
		}, false)
		require.NoError(t, err)

		assert.Equal(t, ReconcileResult{Found: 3, Saved: 3}, res)
		assert.Equal(t, 3, store.inserts)
		// Same number under two departments stays two distinct rows.
		assert.NotZero(t, store.get("418", "LIMA").ID)
		assert.NotZero(t, store.get("418", "CUSCO").ID)
	})

	t.Run("existing warnings are skipped without force", func(t *testing.T) {
		store := newFakeWarningStore()
		r := NewReconciler(store, testLogger(), metrics)

		first, err := r.Reconcile(ctx, []domain.Warning{makeWarning("418", "LIMA", domain.SeverityOrange)}, false)
		require.NoError(t, err)
		require.Equal(t, 1, first.Saved)
		originalID := store.get("418", "LIMA").ID

		// Re-scrape with changed severity: untouched without force.
		changed := makeWarning("418", "LIMA", domain.SeverityRed)
		second, err := r.Reconcile(ctx, []domain.Warning{changed}, false)
		require.NoError(t, err)
		assert.Equal(t, ReconcileResult{Found: 1, Skipped: 1}, second)
		assert.Equal(t, domain.SeverityOrange, store.get("418", "LIMA").Severity)

		// Force rewrites in place, keeping the row id.
		third, err := r.Reconcile(ctx, []domain.Warning{changed}, true)
		require.NoError(t, err)
		assert.Equal(t, ReconcileResult{Found: 1, Updated: 1}, third)
		assert.Equal(t, domain.SeverityRed, store.get("418", "LIMA").Severity)
		assert.Equal(t, originalID, store.get("418", "LIMA").ID)
		assert.Equal(t, 1, store.inserts)
	})

	t.Run("first occurrence wins within a batch", func(t *testing.T) {
		store := newFakeWarningStore()
		r := NewReconciler(store, testLogger(), metrics)

		a := makeWarning("418", "LIMA", domain.SeverityOrange)
		b := makeWarning("418", "LIMA", domain.SeverityRed)
		res, err := r.Reconcile(ctx, []domain.Warning{a, b}, false)
		require.NoError(t, err)

		assert.Equal(t, ReconcileResult{Found: 1, Saved: 1}, res)
		assert.Equal(t, domain.SeverityOrange, store.get("418", "LIMA").Severity)
	})
}
