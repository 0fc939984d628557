package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/geoserver"
	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
	"github.com/avisosperu/senamhi-tracker/internal/shapefile"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// ArchiveDownloader fetches one shapefile archive per warning day.
type ArchiveDownloader interface {
	Download(ctx context.Context, warningNumber string, day, year int) (geoserver.Download, error)
}

// ArchiveParser extracts polygon features from a downloaded archive.
type ArchiveParser interface {
	Parse(zipPath string) ([]shapefile.Feature, error)
}

// GeometrySync downloads and persists hazard-zone geometries for warnings.
type GeometrySync struct {
	warnings   storage.WarningStore
	geometries storage.GeometryStore
	downloader ArchiveDownloader
	parser     ArchiveParser
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewGeometrySync(
	warnings storage.WarningStore,
	geometries storage.GeometryStore,
	downloader ArchiveDownloader,
	parser ArchiveParser,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *GeometrySync {
	return &GeometrySync{
		warnings:   warnings,
		geometries: geometries,
		downloader: downloader,
		parser:     parser,
		logger:     logger,
		metrics:    metrics,
	}
}

// SyncActive is the automatic pass that follows a warnings scrape: every
// currently active warning number gets its geometries fetched once. Numbers
// that already have any geometry stored are left alone, even if the upstream
// shapes changed since; a forced resync is the manual escape hatch.
func (s *GeometrySync) SyncActive(ctx context.Context) error {
	if !s.geometries.Enabled() {
		return nil
	}

	active, err := s.warnings.ActiveWarnings(ctx, domain.Now())
	if err != nil {
		return fmt.Errorf("list active warnings: %w", err)
	}

	seen := make(map[string]bool, len(active))
	for _, w := range active {
		if seen[w.WarningNumber] {
			continue
		}
		seen[w.WarningNumber] = true

		has, err := s.geometries.HasGeometries(ctx, w.WarningNumber)
		if err != nil {
			return fmt.Errorf("check geometries for %s: %w", w.WarningNumber, err)
		}
		if has {
			s.logger.Debug("geometries already synced", "number", w.WarningNumber)
			continue
		}

		if _, err := s.SyncWarning(ctx, w, true); err != nil {
			s.logger.Error("geometry sync failed", "number", w.WarningNumber, "error", err)
		}
	}
	return nil
}

// Resync drops the stored geometries of a warning and syncs them afresh.
func (s *GeometrySync) Resync(ctx context.Context, w domain.Warning) (int, error) {
	deleted, err := s.geometries.DeleteGeometries(ctx, w.WarningNumber)
	if err != nil {
		return 0, fmt.Errorf("delete geometries for %s: %w", w.WarningNumber, err)
	}
	if deleted > 0 {
		s.logger.Info("dropped stored geometries", "number", w.WarningNumber, "rows", deleted)
	}
	return s.SyncWarning(ctx, w, false)
}

// SyncWarning downloads and stores the geometries for every day of one
// warning. A download failure aborts the remaining days (later days depend on
// the same upstream being reachable). A parse failure skips just that day in
// manual mode but aborts in automatic mode, where a half-synced warning would
// otherwise never be revisited. Returns the number of geometry rows written.
func (s *GeometrySync) SyncWarning(ctx context.Context, w domain.Warning, auto bool) (int, error) {
	if w.SenamhiID == nil {
		s.logger.Warn("warning has no upstream id, skipping shapefiles", "number", w.WarningNumber)
		return 0, nil
	}

	days := domain.CalculateWarningDays(w.ValidFrom, w.ValidUntil)
	year := w.ValidFrom.Year()
	s.logger.Info("syncing warning geometries",
		"number", w.WarningNumber, "days", days, "year", year)

	synced := 0
	for day := 1; day <= days; day++ {
		dl, err := s.downloader.Download(ctx, w.WarningNumber, day, year)
		if err != nil {
			s.logger.Error("shapefile download failed",
				"number", w.WarningNumber, "day", day, "error", err)
			s.metrics.ShapefileDownloads.WithLabelValues("failed").Inc()
			s.metrics.FetchErrors.WithLabelValues("geoserver").Inc()
			break
		}
		if dl.Cached {
			s.metrics.ShapefileDownloads.WithLabelValues("cached").Inc()
		} else {
			s.metrics.ShapefileDownloads.WithLabelValues("success").Inc()
		}

		features, err := s.parser.Parse(dl.Path)
		if err != nil {
			s.logger.Warn("shapefile parse failed",
				"number", w.WarningNumber, "day", day, "error", err)
			s.metrics.ShapefileDownloads.WithLabelValues("invalid").Inc()
			s.metrics.ParseErrors.Inc()
			if auto {
				break
			}
			continue
		}

		grouped := shapefile.GroupByNivel(features)
		for _, nivel := range shapefile.Nivels(grouped) {
			g := &domain.WarningGeometry{
				WarningNumber: w.WarningNumber,
				DayNumber:     day,
				Nivel:         nivel,
				Geometry:      grouped[nivel],
				ShapefileURL:  dl.URL,
				ShapefilePath: dl.Path,
				DownloadedAt:  domain.Now(),
			}
			if err := s.geometries.UpsertGeometry(ctx, g); err != nil {
				return synced, fmt.Errorf("store geometry %s day %d nivel %d: %w",
					w.WarningNumber, day, nivel, err)
			}
			synced++
			s.metrics.GeometriesSynced.Inc()
		}
	}

	s.logger.Info("warning geometries synced", "number", w.WarningNumber, "rows", synced)
	return synced, nil
}
