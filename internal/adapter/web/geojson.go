package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// handleWarningGeometry returns the hazard zones of one warning as a GeoJSON
// FeatureCollection, one feature per (day, nivel). With ?day= only that day's
// features are returned.
// GET /api/v1/warnings/:number/geometry
func (s *Server) handleWarningGeometry(c *gin.Context) {
	if !s.geometries.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "geospatial support disabled"})
		return
	}

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

	geometries, err := s.geometries.GeometriesForWarning(ctx, number)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if dayParam := c.Query("day"); dayParam != "" {
		day, err := strconv.Atoi(dayParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day"})
			return
		}
		filtered := make([]domain.WarningGeometry, 0, len(geometries))
		for _, g := range geometries {
			if g.DayNumber == day {
				filtered = append(filtered, g)
			}
		}
		geometries = filtered
	}

	if len(geometries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "warning has no stored geometries, run a shapefile sync first",
		})
		return
	}

	c.JSON(http.StatusOK, featureCollection(geometries, warnings[0]))
}

// handleActiveGeometries returns the hazard zones of every active warning in
// one FeatureCollection.
// GET /api/v1/warnings/active/geometry
func (s *Server) handleActiveGeometries(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()

	fc := geojson.NewFeatureCollection()
	if !s.geometries.Enabled() {
		c.JSON(http.StatusOK, fc)
		return
	}

	active, err := s.warnings.ActiveWarnings(ctx, domain.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	seen := make(map[string]bool, len(active))
	for _, w := range active {
		if seen[w.WarningNumber] {
			continue
		}
		seen[w.WarningNumber] = true

		geometries, err := s.geometries.GeometriesForWarning(ctx, w.WarningNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, f := range featureCollection(geometries, w).Features {
			fc.Append(f)
		}
	}

	c.JSON(http.StatusOK, fc)
}

func featureCollection(geometries []domain.WarningGeometry, w domain.Warning) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range geometries {
		f := geojson.NewFeature(g.Geometry)
		f.Properties = geojson.Properties{
			"warning_number": g.WarningNumber,
			"day_number":     g.DayNumber,
			"nivel":          g.Nivel,
			"title":          w.Title,
			"severity":       string(w.Severity),
			"status":         string(w.Status),
			"department":     w.Department,
			"valid_from":     w.ValidFrom,
			"valid_until":    w.ValidUntil,
			"issued_at":      w.IssuedAt,
		}
		fc.Append(f)
	}
	return fc
}
