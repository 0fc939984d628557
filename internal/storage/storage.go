// Package storage persists warnings, geometries, forecasts and run records.
//
// The concrete implementation is PostgreSQL (pgx); geometry persistence is a
// separate concern behind GeometryStore so deployments without PostGIS can run
// everything else with the geospatial pipeline switched off.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// WarningQuery filters warning listings. Zero values mean no filter.
type WarningQuery struct {
	Number     string
	Department string
	Status     domain.Status
	Severity   domain.Severity
	Limit      int
}

// WarningStore reconciles scraped warnings against stored state.
type WarningStore interface {
	// FindWarning looks up the row for one (warning number, department)
	// identity. Returns ErrNotFound when absent.
	FindWarning(ctx context.Context, number, department string) (*domain.Warning, error)
	InsertWarning(ctx context.Context, w *domain.Warning) error
	// UpdateWarning rewrites the mutable fields of an existing row in place,
	// keyed by its identity. The row id never changes.
	UpdateWarning(ctx context.Context, w *domain.Warning) error
	ListWarnings(ctx context.Context, q WarningQuery) ([]domain.Warning, error)
	// ActiveWarnings returns warnings whose validity window contains now or
	// starts after it, computed from the stored dates rather than the stored
	// status snapshot.
	ActiveWarnings(ctx context.Context, now time.Time) ([]domain.Warning, error)
}

// GeometryStore persists hazard-zone multipolygons keyed by
// (warning number, day number, nivel).
type GeometryStore interface {
	// Enabled reports whether geometry persistence is available at all.
	Enabled() bool
	HasGeometries(ctx context.Context, warningNumber string) (bool, error)
	UpsertGeometry(ctx context.Context, g *domain.WarningGeometry) error
	GeometriesForWarning(ctx context.Context, warningNumber string) ([]domain.WarningGeometry, error)
	DeleteGeometries(ctx context.Context, warningNumber string) (int64, error)
}

// RunStore records the audit trail of forecast ingestion attempts.
type RunStore interface {
	// CreateRun inserts the run in running state and fills in its ID.
	CreateRun(ctx context.Context, run *domain.ScrapeRun) error
	// FinishRun moves the run to its terminal status.
	FinishRun(ctx context.Context, run *domain.ScrapeRun) error
	RecentRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error)
}

// ForecastStore persists scraped location forecasts.
type ForecastStore interface {
	// ForecastExistsForIssueDate reports whether any forecast for the given
	// publication date is already stored. Used to skip redundant scrapes.
	ForecastExistsForIssueDate(ctx context.Context, issuedAt time.Time) (bool, error)
	DeleteForecastsByIssueDate(ctx context.Context, issuedAt time.Time) (int64, error)
	GetOrCreateLocation(ctx context.Context, name, department, fullName string) (*domain.Location, error)
	SetLocationCoordinates(ctx context.Context, locationID int64, lat, lon float64) error
	ListLocations(ctx context.Context) ([]domain.Location, error)
	// SaveLocationForecasts upserts the daily rows of one scraped location
	// and returns how many were written.
	SaveLocationForecasts(ctx context.Context, lf domain.LocationForecast) (int, error)
	LatestForecasts(ctx context.Context, locationID int64) ([]domain.Forecast, error)
	ForecastHistory(ctx context.Context, locationID int64, limit int) ([]domain.Forecast, error)
}
