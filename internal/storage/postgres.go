package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

//go:embed schema_geospatial.sql
var schemaGeospatialSQL string

// Postgres implements the store interfaces over a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool resources.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Migrate applies the schema. The geospatial tables need the PostGIS
// extension and are only created when geometry persistence is switched on.
func (p *Postgres) Migrate(ctx context.Context, geospatial bool) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if geospatial {
		if _, err := p.pool.Exec(ctx, schemaGeospatialSQL); err != nil {
			return fmt.Errorf("apply geospatial schema: %w", err)
		}
	}
	return nil
}

const warningColumns = `
    id, senamhi_id, warning_number, department, severity, status, title,
    description, valid_from, valid_until, issued_at, scraped_at`

const findWarningSQL = `
    SELECT` + warningColumns + `
    FROM warnings
    WHERE warning_number = $1 AND department = $2
`

func (p *Postgres) FindWarning(ctx context.Context, number, department string) (*domain.Warning, error) {
	row := p.pool.QueryRow(ctx, findWarningSQL, number, department)
	w, err := scanWarning(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

const insertWarningSQL = `
    INSERT INTO warnings (
        senamhi_id, warning_number, department, severity, status, title,
        description, valid_from, valid_until, issued_at, scraped_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    RETURNING id
`

func (p *Postgres) InsertWarning(ctx context.Context, w *domain.Warning) error {
	return p.pool.QueryRow(ctx, insertWarningSQL,
		w.SenamhiID, w.WarningNumber, w.Department, w.Severity, w.Status,
		w.Title, w.Description, w.ValidFrom, w.ValidUntil, w.IssuedAt, w.ScrapedAt,
	).Scan(&w.ID)
}

const updateWarningSQL = `
    UPDATE warnings
    SET senamhi_id = $3, severity = $4, status = $5, title = $6,
        description = $7, valid_from = $8, valid_until = $9, issued_at = $10,
        scraped_at = $11
    WHERE warning_number = $1 AND department = $2
`

func (p *Postgres) UpdateWarning(ctx context.Context, w *domain.Warning) error {
	tag, err := p.pool.Exec(ctx, updateWarningSQL,
		w.WarningNumber, w.Department, w.SenamhiID, w.Severity, w.Status,
		w.Title, w.Description, w.ValidFrom, w.ValidUntil, w.IssuedAt, w.ScrapedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListWarnings(ctx context.Context, q WarningQuery) ([]domain.Warning, error) {
	sql := "SELECT" + warningColumns + " FROM warnings"
	args := []any{}
	clause := " WHERE TRUE"
	if q.Number != "" {
		args = append(args, q.Number)
		clause += " AND warning_number = $" + strconv.Itoa(len(args))
	}
	if q.Department != "" {
		args = append(args, q.Department)
		clause += " AND department = $" + strconv.Itoa(len(args))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		clause += " AND status = $" + strconv.Itoa(len(args))
	}
	if q.Severity != "" {
		args = append(args, q.Severity)
		clause += " AND severity = $" + strconv.Itoa(len(args))
	}
	sql += clause + " ORDER BY valid_from DESC, warning_number, department"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWarnings(rows)
}

const activeWarningsSQL = `
    SELECT` + warningColumns + `
    FROM warnings
    WHERE valid_until >= $1
    ORDER BY valid_from, warning_number, department
`

func (p *Postgres) ActiveWarnings(ctx context.Context, now time.Time) ([]domain.Warning, error) {
	rows, err := p.pool.Query(ctx, activeWarningsSQL, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWarnings(rows)
}

func scanWarning(row pgx.Row) (*domain.Warning, error) {
	var w domain.Warning
	err := row.Scan(
		&w.ID,
		&w.SenamhiID,
		&w.WarningNumber,
		&w.Department,
		&w.Severity,
		&w.Status,
		&w.Title,
		&w.Description,
		&w.ValidFrom,
		&w.ValidUntil,
		&w.IssuedAt,
		&w.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collectWarnings(rows pgx.Rows) ([]domain.Warning, error) {
	warnings := make([]domain.Warning, 0)
	for rows.Next() {
		w, err := scanWarning(rows)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, *w)
	}
	return warnings, rows.Err()
}

const createRunSQL = `
    INSERT INTO scrape_runs (started_at, status, departments)
    VALUES ($1, $2, $3)
    RETURNING id
`

func (p *Postgres) CreateRun(ctx context.Context, run *domain.ScrapeRun) error {
	return p.pool.QueryRow(ctx, createRunSQL,
		run.StartedAt, run.Status, run.Departments,
	).Scan(&run.ID)
}

const finishRunSQL = `
    UPDATE scrape_runs
    SET finished_at = $2, status = $3, locations_scraped = $4,
        forecasts_saved = $5, error_message = $6
    WHERE id = $1
`

func (p *Postgres) FinishRun(ctx context.Context, run *domain.ScrapeRun) error {
	tag, err := p.pool.Exec(ctx, finishRunSQL,
		run.ID, run.FinishedAt, run.Status, run.LocationsScraped,
		run.ForecastsSaved, run.ErrorMessage,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const recentRunsSQL = `
    SELECT id, started_at, finished_at, status, locations_scraped,
           forecasts_saved, error_message, departments
    FROM scrape_runs
    ORDER BY started_at DESC
    LIMIT $1
`

func (p *Postgres) RecentRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.ScrapeRun, 0)
	for rows.Next() {
		var r domain.ScrapeRun
		if err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Status,
			&r.LocationsScraped,
			&r.ForecastsSaved,
			&r.ErrorMessage,
			&r.Departments,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const forecastExistsSQL = `
    SELECT EXISTS (SELECT 1 FROM forecasts WHERE issued_at = $1::date)
`

func (p *Postgres) ForecastExistsForIssueDate(ctx context.Context, issuedAt time.Time) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, forecastExistsSQL, issuedAt).Scan(&exists)
	return exists, err
}

const deleteForecastsByIssueDateSQL = `
    DELETE FROM forecasts WHERE issued_at = $1::date
`

func (p *Postgres) DeleteForecastsByIssueDate(ctx context.Context, issuedAt time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, deleteForecastsByIssueDateSQL, issuedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getOrCreateLocationSQL = `
    INSERT INTO locations (name, department, full_name)
    VALUES ($1, $2, $3)
    ON CONFLICT (name, department)
    DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = now()
    RETURNING id, name, department, full_name, active, latitude, longitude,
              created_at, updated_at
`

func (p *Postgres) GetOrCreateLocation(ctx context.Context, name, department, fullName string) (*domain.Location, error) {
	var loc domain.Location
	err := p.pool.QueryRow(ctx, getOrCreateLocationSQL, name, department, fullName).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Department,
		&loc.FullName,
		&loc.Active,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

const setLocationCoordinatesSQL = `
    UPDATE locations
    SET latitude = $2, longitude = $3, updated_at = now()
    WHERE id = $1
`

func (p *Postgres) SetLocationCoordinates(ctx context.Context, locationID int64, lat, lon float64) error {
	tag, err := p.pool.Exec(ctx, setLocationCoordinatesSQL, locationID, lat, lon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listLocationsSQL = `
    SELECT id, name, department, full_name, active, latitude, longitude,
           created_at, updated_at
    FROM locations
    ORDER BY department, name
`

func (p *Postgres) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := p.pool.Query(ctx, listLocationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]domain.Location, 0)
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(
			&loc.ID,
			&loc.Name,
			&loc.Department,
			&loc.FullName,
			&loc.Active,
			&loc.Latitude,
			&loc.Longitude,
			&loc.CreatedAt,
			&loc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

const upsertForecastSQL = `
    INSERT INTO forecasts (
        location_id, forecast_date, day_name, temp_max, temp_min,
        weather_icon, description, issued_at, scraped_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (location_id, issued_at, forecast_date)
    DO UPDATE SET day_name = EXCLUDED.day_name,
                  temp_max = EXCLUDED.temp_max,
                  temp_min = EXCLUDED.temp_min,
                  weather_icon = EXCLUDED.weather_icon,
                  description = EXCLUDED.description,
                  scraped_at = EXCLUDED.scraped_at
`

func (p *Postgres) SaveLocationForecasts(ctx context.Context, lf domain.LocationForecast) (int, error) {
	loc, err := p.GetOrCreateLocation(ctx, lf.Location, lf.Department, lf.FullName)
	if err != nil {
		return 0, fmt.Errorf("resolve location %s: %w", lf.Location, err)
	}

	saved := 0
	for _, f := range lf.Forecasts {
		_, err := p.pool.Exec(ctx, upsertForecastSQL,
			loc.ID, f.Date, f.DayName, f.TempMax, f.TempMin,
			f.WeatherIcon, f.Description, lf.IssuedAt, lf.ScrapedAt,
		)
		if err != nil {
			return saved, fmt.Errorf("save forecast for %s: %w", lf.Location, err)
		}
		saved++
	}
	return saved, nil
}

const latestForecastsSQL = `
    SELECT id, location_id, forecast_date, day_name, temp_max, temp_min,
           weather_icon, description, issued_at, scraped_at
    FROM forecasts
    WHERE location_id = $1
      AND issued_at = (SELECT MAX(issued_at) FROM forecasts WHERE location_id = $1)
    ORDER BY forecast_date
`

func (p *Postgres) LatestForecasts(ctx context.Context, locationID int64) ([]domain.Forecast, error) {
	rows, err := p.pool.Query(ctx, latestForecastsSQL, locationID)
	if err != nil {
		return nil, err
	}
	return collectForecasts(rows)
}

const forecastHistorySQL = `
    SELECT id, location_id, forecast_date, day_name, temp_max, temp_min,
           weather_icon, description, issued_at, scraped_at
    FROM forecasts
    WHERE location_id = $1
    ORDER BY issued_at DESC, forecast_date
    LIMIT $2
`

// ForecastHistory returns stored forecasts for a location across issue
// dates, newest issue first.
func (p *Postgres) ForecastHistory(ctx context.Context, locationID int64, limit int) ([]domain.Forecast, error) {
	if limit <= 0 {
		limit = 70
	}
	rows, err := p.pool.Query(ctx, forecastHistorySQL, locationID, limit)
	if err != nil {
		return nil, err
	}
	return collectForecasts(rows)
}

func collectForecasts(rows pgx.Rows) ([]domain.Forecast, error) {
	defer rows.Close()

	forecasts := make([]domain.Forecast, 0)
	for rows.Next() {
		var f domain.Forecast
		if err := rows.Scan(
			&f.ID,
			&f.LocationID,
			&f.ForecastDate,
			&f.DayName,
			&f.TempMax,
			&f.TempMin,
			&f.WeatherIcon,
			&f.Description,
			&f.IssuedAt,
			&f.ScrapedAt,
		); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}
