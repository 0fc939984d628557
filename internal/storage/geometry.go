package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

// ErrGeospatialDisabled is returned by the nop geometry store for any
// operation that would need PostGIS.
var ErrGeospatialDisabled = errors.New("geospatial support disabled")

// Enabled reports that PostGIS-backed geometry persistence is available.
func (p *Postgres) Enabled() bool { return true }

const hasGeometriesSQL = `
    SELECT EXISTS (SELECT 1 FROM warning_geometries WHERE warning_number = $1)
`

func (p *Postgres) HasGeometries(ctx context.Context, warningNumber string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, hasGeometriesSQL, warningNumber).Scan(&exists)
	return exists, err
}

const upsertGeometrySQL = `
    INSERT INTO warning_geometries (
        warning_number, day_number, nivel, geometry, shapefile_url,
        shapefile_path, downloaded_at
    )
    VALUES ($1, $2, $3, ST_Multi(ST_GeomFromText($4, 4326)), $5, $6, $7)
    ON CONFLICT (warning_number, day_number, nivel)
    DO UPDATE SET geometry = EXCLUDED.geometry,
                  shapefile_url = EXCLUDED.shapefile_url,
                  shapefile_path = EXCLUDED.shapefile_path,
                  downloaded_at = EXCLUDED.downloaded_at,
                  updated_at = now()
    RETURNING id
`

func (p *Postgres) UpsertGeometry(ctx context.Context, g *domain.WarningGeometry) error {
	return p.pool.QueryRow(ctx, upsertGeometrySQL,
		g.WarningNumber, g.DayNumber, g.Nivel, wkt.MarshalString(g.Geometry),
		g.ShapefileURL, g.ShapefilePath, g.DownloadedAt,
	).Scan(&g.ID)
}

const geometriesForWarningSQL = `
    SELECT id, warning_number, day_number, nivel, ST_AsGeoJSON(geometry),
           shapefile_url, shapefile_path, downloaded_at, created_at, updated_at
    FROM warning_geometries
    WHERE warning_number = $1
    ORDER BY day_number, nivel
`

func (p *Postgres) GeometriesForWarning(ctx context.Context, warningNumber string) ([]domain.WarningGeometry, error) {
	rows, err := p.pool.Query(ctx, geometriesForWarningSQL, warningNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	geometries := make([]domain.WarningGeometry, 0)
	for rows.Next() {
		var g domain.WarningGeometry
		var rawGeoJSON []byte
		if err := rows.Scan(
			&g.ID,
			&g.WarningNumber,
			&g.DayNumber,
			&g.Nivel,
			&rawGeoJSON,
			&g.ShapefileURL,
			&g.ShapefilePath,
			&g.DownloadedAt,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		g.Geometry, err = decodeMultiPolygon(rawGeoJSON)
		if err != nil {
			return nil, fmt.Errorf("decode geometry %d: %w", g.ID, err)
		}
		geometries = append(geometries, g)
	}
	return geometries, rows.Err()
}

const deleteGeometriesSQL = `
    DELETE FROM warning_geometries WHERE warning_number = $1
`

func (p *Postgres) DeleteGeometries(ctx context.Context, warningNumber string) (int64, error) {
	tag, err := p.pool.Exec(ctx, deleteGeometriesSQL, warningNumber)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func decodeMultiPolygon(rawGeoJSON []byte) (orb.MultiPolygon, error) {
	geom, err := geojson.UnmarshalGeometry(rawGeoJSON)
	if err != nil {
		return nil, err
	}
	switch g := geom.Geometry().(type) {
	case orb.MultiPolygon:
		return g, nil
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	default:
		return nil, fmt.Errorf("unexpected geometry type %T", g)
	}
}

// NopGeometryStore stands in when the database has no PostGIS extension.
// Reads come back empty and writes fail with ErrGeospatialDisabled.
type NopGeometryStore struct{}

func (NopGeometryStore) Enabled() bool { return false }

func (NopGeometryStore) HasGeometries(context.Context, string) (bool, error) {
	return false, nil
}

func (NopGeometryStore) UpsertGeometry(context.Context, *domain.WarningGeometry) error {
	return ErrGeospatialDisabled
}

func (NopGeometryStore) GeometriesForWarning(context.Context, string) ([]domain.WarningGeometry, error) {
	return nil, nil
}

func (NopGeometryStore) DeleteGeometries(context.Context, string) (int64, error) {
	return 0, nil
}
