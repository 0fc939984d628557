package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
	"github.com/avisosperu/senamhi-tracker/internal/shapefile"
)

func zoneFeatures() []shapefile.Feature {
	poly := orb.Polygon{{{-77, -12}, {-77, -11}, {-76, -11}, {-76, -12}, {-77, -12}}}
	return []shapefile.Feature{
		{Geometry: orb.MultiPolygon{poly}, Nivel: 2},
		{Geometry: orb.MultiPolygon{poly}, Nivel: 3},
	}
}

// geoWarning spans three days starting 2025-11-17.
func geoWarning(number string) domain.Warning {
	id := int64(98765)
	w := makeWarning(number, "LIMA", domain.SeverityOrange)
	w.SenamhiID = &id
	w.ValidFrom = time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)
	w.ValidUntil = time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)
	return w
}

func newTestSync(ws *fakeWarningStore, gs *fakeGeometryStore, dl *fakeDownloader, p *fakeParser) *GeometrySync {
	return NewGeometrySync(ws, gs, dl, p, testLogger(), observability.NewMetricsForTesting())
}

func TestSyncWarning(t *testing.T) {
	ctx := context.Background()

	t.Run("stores one row per day and nivel", func(t *testing.T) {
		geoms := newFakeGeometryStore()
		sync := newTestSync(newFakeWarningStore(), geoms, &fakeDownloader{}, &fakeParser{features: zoneFeatures()})

		synced, err := sync.SyncWarning(ctx, geoWarning("418"), false)
		require.NoError(t, err)

		// 3 days x 2 nivels.
		assert.Equal(t, 6, synced)
		assert.Equal(t, 6, geoms.upserts)
	})

	t.Run("download failure stops the remaining days", func(t *testing.T) {
		geoms := newFakeGeometryStore()
		dl := &fakeDownloader{errOnDay: 2}
		sync := newTestSync(newFakeWarningStore(), geoms, dl, &fakeParser{features: zoneFeatures()})

		synced, err := sync.SyncWarning(ctx, geoWarning("418"), false)
		require.NoError(t, err)

		assert.Equal(t, 2, synced)
		assert.Equal(t, []int{1, 2}, dl.calls)
	})

	t.Run("parse failure skips the day in manual mode", func(t *testing.T) {
		geoms := newFakeGeometryStore()
		parser := &fakeParser{features: zoneFeatures(), errOnCall: 2}
		sync := newTestSync(newFakeWarningStore(), geoms, &fakeDownloader{}, parser)

		synced, err := sync.SyncWarning(ctx, geoWarning("418"), false)
		require.NoError(t, err)

		// Days 1 and 3 persist, day 2 is dropped.
		assert.Equal(t, 4, synced)
		assert.Equal(t, 3, parser.calls)
	})

	t.Run("parse failure aborts in automatic mode", func(t *testing.T) {
		geoms := newFakeGeometryStore()
		parser := &fakeParser{features: zoneFeatures(), errOnCall: 2}
		sync := newTestSync(newFakeWarningStore(), geoms, &fakeDownloader{}, parser)

		synced, err := sync.SyncWarning(ctx, geoWarning("418"), true)
		require.NoError(t, err)

		assert.Equal(t, 2, synced)
		assert.Equal(t, 2, parser.calls)
	})

	t.Run("missing upstream id skips the warning", func(t *testing.T) {
		dl := &fakeDownloader{}
		sync := newTestSync(newFakeWarningStore(), newFakeGeometryStore(), dl, &fakeParser{})

		w := geoWarning("418")
		w.SenamhiID = nil
		synced, err := sync.SyncWarning(ctx, w, false)
		require.NoError(t, err)
		assert.Zero(t, synced)
		assert.Empty(t, dl.calls)
	})
}

func TestSyncActive(t *testing.T) {
	ctx := context.Background()
	frozenAt(t, time.Date(2025, 11, 18, 12, 0, 0, 0, time.UTC))

	t.Run("syncs each active number once", func(t *testing.T) {
		warnings := newFakeWarningStore()
		// Same number across two departments: one sync, not two.
		for _, dept := range []string{"LIMA", "CUSCO"} {
			w := geoWarning("418")
			w.Department = dept
			require.NoError(t, warnings.InsertWarning(ctx, &w))
		}
		// Expired warning: ignored.
		expired := geoWarning("400")
		expired.ValidFrom = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
		expired.ValidUntil = time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
		require.NoError(t, warnings.InsertWarning(ctx, &expired))

		geoms := newFakeGeometryStore()
		dl := &fakeDownloader{}
		sync := newTestSync(warnings, geoms, dl, &fakeParser{features: zoneFeatures()})

		require.NoError(t, sync.SyncActive(ctx))
		assert.Equal(t, []int{1, 2, 3}, dl.calls)
		assert.Equal(t, 6, geoms.upserts)
	})

	t.Run("numbers with stored geometries are not refetched", func(t *testing.T) {
		warnings := newFakeWarningStore()
		w := geoWarning("418")
		require.NoError(t, warnings.InsertWarning(ctx, &w))

		geoms := newFakeGeometryStore()
		geoms.rows[[3]any{"418", 1, 2}] = domain.WarningGeometry{WarningNumber: "418"}

		dl := &fakeDownloader{}
		sync := newTestSync(warnings, geoms, dl, &fakeParser{features: zoneFeatures()})

		require.NoError(t, sync.SyncActive(ctx))
		assert.Empty(t, dl.calls)
	})

	t.Run("disabled geometry store is a no-op", func(t *testing.T) {
		warnings := newFakeWarningStore()
		w := geoWarning("418")
		require.NoError(t, warnings.InsertWarning(ctx, &w))

		geoms := newFakeGeometryStore()
		geoms.enabled = false
		dl := &fakeDownloader{}
		sync := newTestSync(warnings, geoms, dl, &fakeParser{})

		require.NoError(t, sync.SyncActive(ctx))
		assert.Empty(t, dl.calls)
	})
}

func TestResync(t *testing.T) {
	ctx := context.Background()

	warnings := newFakeWarningStore()
	geoms := newFakeGeometryStore()
	geoms.rows[[3]any{"418", 1, 2}] = domain.WarningGeometry{WarningNumber: "418"}

	sync := newTestSync(warnings, geoms, &fakeDownloader{}, &fakeParser{features: zoneFeatures()})

	synced, err := sync.Resync(ctx, geoWarning("418"))
	require.NoError(t, err)
	assert.Equal(t, 6, synced)
	assert.Equal(t, 1, geoms.deletes)
}
