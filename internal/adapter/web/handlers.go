package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/openmeteo"
	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

const queryTimeout = 10 * time.Second

type warningResponse struct {
	ID            int64     `json:"id"`
	SenamhiID     *int64    `json:"senamhi_id,omitempty"`
	WarningNumber string    `json:"warning_number"`
	Department    string    `json:"department"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	Active        bool      `json:"active"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
	IssuedAt      time.Time `json:"issued_at"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// toWarningResponse derives the display status from the validity window at
// read time; the stored status column is only a snapshot from scrape time.
func toWarningResponse(w domain.Warning, now time.Time) warningResponse {
	return warningResponse{
		ID:            w.ID,
		SenamhiID:     w.SenamhiID,
		WarningNumber: w.WarningNumber,
		Department:    w.Department,
		Severity:      string(w.Severity),
		Status:        string(domain.DeriveStatus(w.ValidFrom, w.ValidUntil, now)),
		Active:        w.IsActive(now),
		Title:         w.Title,
		Description:   w.Description,
		ValidFrom:     w.ValidFrom,
		ValidUntil:    w.ValidUntil,
		IssuedAt:      w.IssuedAt,
		ScrapedAt:     w.ScrapedAt,
	}
}

func toWarningResponses(warnings []domain.Warning, now time.Time) []warningResponse {
	out := make([]warningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, toWarningResponse(w, now))
	}
	return out
}

func (s *Server) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), queryTimeout)
}

// handleListWarnings returns stored warnings with optional filters.
// GET /api/v1/warnings?number=&department=&status=&severity=&limit=
func (s *Server) handleListWarnings(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	limit, _ := strconv.Atoi(c.Query("limit"))
	q := storage.WarningQuery{
		Number:     c.Query("number"),
		Department: c.Query("department"),
		Status:     domain.Status(c.Query("status")),
		Severity:   domain.Severity(c.Query("severity")),
		Limit:      limit,
	}

	warnings, err := s.warnings.ListWarnings(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := domain.Now()
	c.JSON(http.StatusOK, gin.H{
		"data": toWarningResponses(warnings, now),
		"meta": gin.H{"count": len(warnings)},
	})
}

// handleActiveWarnings returns warnings whose window has not yet closed,
// soonest-relevant first. With ?grouped=true the department rows are folded
// into one summary per warning number.
// GET /api/v1/warnings/active?department=&grouped=
func (s *Server) handleActiveWarnings(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	now := domain.Now()
	warnings, err := s.warnings.ActiveWarnings(ctx, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if dept := domain.NormalizeDepartment(c.Query("department")); dept != "" {
		filtered := make([]domain.Warning, 0, len(warnings))
		for _, w := range warnings {
			if w.Department == dept {
				filtered = append(filtered, w)
			}
		}
		warnings = filtered
	}
	for i := range warnings {
		warnings[i].Status = domain.DeriveStatus(warnings[i].ValidFrom, warnings[i].ValidUntil, now)
	}
	domain.SortActive(warnings, now)

	if c.Query("grouped") == "true" {
		groups := domain.GroupByNumber(warnings)
		c.JSON(http.StatusOK, gin.H{
			"data": toGroupResponses(groups),
			"meta": gin.H{"count": len(groups)},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": toWarningResponses(warnings, now),
		"meta": gin.H{"count": len(warnings)},
	})
}

type groupResponse struct {
	WarningNumber string    `json:"warning_number"`
	Title         string    `json:"title"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
	Departments   []string  `json:"departments"`
}

func toGroupResponses(groups []domain.WarningGroup) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{
			WarningNumber: g.WarningNumber,
			Title:         g.Title,
			Severity:      string(g.Severity),
			Status:        string(g.Status),
			ValidFrom:     g.ValidFrom,
			ValidUntil:    g.ValidUntil,
			Departments:   g.Departments,
		})
	}
	return out
}

// handleWarningDetail returns every department row sharing one warning number
// plus whether geometries are stored for it.
// GET /api/v1/warnings/:number
func (s *Server) handleWarningDetail(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	number := c.Param("number")
	warnings, err := s.warnings.ListWarnings(ctx, storage.WarningQuery{Number: number})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(warnings) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "warning not found"})
		return
	}

	hasGeometries := false
	if s.geometries.Enabled() {
		hasGeometries, err = s.geometries.HasGeometries(ctx, number)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	now := domain.Now()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"warning_number": number,
			"departments":    toWarningResponses(warnings, now),
			"has_geometries": hasGeometries,
		},
	})
}

// handleRecentRuns returns the forecast job audit trail, newest first,
// optionally narrowed to one terminal status.
// GET /api/v1/runs?limit=&status=
func (s *Server) handleRecentRuns(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.runs.RecentRuns(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]domain.ScrapeRun, 0, len(runs))
		for _, r := range runs {
			if string(r.Status) == status {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"data": toRunResponses(runs),
		"meta": gin.H{"count": len(runs)},
	})
}

type runResponse struct {
	ID               int64      `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Status           string     `json:"status"`
	LocationsScraped int        `json:"locations_scraped"`
	ForecastsSaved   int        `json:"forecasts_saved"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	Departments      []string   `json:"departments"`
}

func toRunResponses(runs []domain.ScrapeRun) []runResponse {
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, runResponse{
			ID:               r.ID,
			StartedAt:        r.StartedAt,
			FinishedAt:       r.FinishedAt,
			Status:           string(r.Status),
			LocationsScraped: r.LocationsScraped,
			ForecastsSaved:   r.ForecastsSaved,
			ErrorMessage:     r.ErrorMessage,
			Departments:      r.Departments,
		})
	}
	return out
}

type locationResponse struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	FullName   string   `json:"full_name"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// handleListLocations returns the known forecast locations.
// GET /api/v1/locations
func (s *Server) handleListLocations(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	locations, err := s.forecasts.ListLocations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]locationResponse, 0, len(locations))
	for _, loc := range locations {
		out = append(out, locationResponse{
			ID:         loc.ID,
			Name:       loc.Name,
			Department: loc.Department,
			FullName:   loc.FullName,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{"count": len(out)},
	})
}

type forecastResponse struct {
	ForecastDate time.Time `json:"forecast_date"`
	DayName      string    `json:"day_name"`
	TempMax      int       `json:"temp_max"`
	TempMin      int       `json:"temp_min"`
	WeatherIcon  string    `json:"weather_icon,omitempty"`
	Description  string    `json:"description,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// handleLocationForecasts returns the most recent forecast set for a
// location, or its full history across issue dates with ?history=true.
// GET /api/v1/locations/:id/forecasts?history=&limit=
func (s *Server) handleLocationForecasts(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	var forecasts []domain.Forecast
	if c.Query("history") == "true" {
		limit, _ := strconv.Atoi(c.Query("limit"))
		forecasts, err = s.forecasts.ForecastHistory(ctx, id, limit)
	} else {
		forecasts, err = s.forecasts.LatestForecasts(ctx, id)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]forecastResponse, 0, len(forecasts))
	for _, f := range forecasts {
		out = append(out, forecastResponse{
			ForecastDate: f.ForecastDate,
			DayName:      f.DayName,
			TempMax:      f.TempMax,
			TempMin:      f.TempMin,
			WeatherIcon:  f.WeatherIcon,
			Description:  f.Description,
			IssuedAt:     f.IssuedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{"count": len(out)},
	})
}

// handleLocationHourly proxies an hourly model forecast for a location's
// coordinates from Open-Meteo.
// GET /api/v1/locations/:id/hourly?hourly=&models=&days=
func (s *Server) handleLocationHourly(c *gin.Context) {
	if s.meteo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hourly forecasts not configured"})
		return
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	locations, err := s.forecasts.ListLocations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var loc *domain.Location
	for i := range locations {
		if locations[i].ID == id {
			loc = &locations[i]
			break
		}
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	if loc.Latitude == nil || loc.Longitude == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "location has no coordinates"})
		return
	}

	req := openmeteo.Request{
		Latitude:  *loc.Latitude,
		Longitude: *loc.Longitude,
	}
	if hourly := c.Query("hourly"); hourly != "" {
		req.Variables = strings.Split(hourly, ",")
	}
	if models := c.Query("models"); models != "" {
		req.Models = strings.Split(models, ",")
	}
	if days, err := strconv.Atoi(c.Query("days")); err == nil {
		req.ForecastDays = days
	}

	body, err := s.meteo.HourlyForecast(ctx, req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// handleCapabilities reports which optional features this deployment carries.
// GET /api/v1/capabilities
func (s *Server) handleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"geospatial":         s.geometries.Enabled(),
		"warning_geometries": s.geometries.Enabled(),
		"hourly_forecasts":   s.meteo != nil,
	})
}
