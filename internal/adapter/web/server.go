// Package web serves the read-only dashboard API over the stored warnings,
// geometries, forecasts and run records.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/openmeteo"
	"github.com/avisosperu/senamhi-tracker/internal/config"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// HourlyForecaster fetches hourly model forecasts for a coordinate pair.
type HourlyForecaster interface {
	HourlyForecast(ctx context.Context, req openmeteo.Request) (json.RawMessage, error)
}

// Server bundles the gin router and its data dependencies.
type Server struct {
	cfg        *config.Config
	warnings   storage.WarningStore
	geometries storage.GeometryStore
	forecasts  storage.ForecastStore
	runs       storage.RunStore
	meteo      HourlyForecaster
	logger     *slog.Logger
	engine     *gin.Engine
}

// New constructs a server with routes and middleware. meteo may be nil when
// no Open-Meteo endpoint is configured.
func New(
	cfg *config.Config,
	warnings storage.WarningStore,
	geometries storage.GeometryStore,
	forecasts storage.ForecastStore,
	runs storage.RunStore,
	meteo HourlyForecaster,
	logger *slog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		cfg:        cfg,
		warnings:   warnings,
		geometries: geometries,
		forecasts:  forecasts,
		runs:       runs,
		meteo:      meteo,
		logger:     logger,
		engine:     engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/warnings", s.handleListWarnings)
		v1.GET("/warnings/active", s.handleActiveWarnings)
		v1.GET("/warnings/active/geometry", s.handleActiveGeometries)
		v1.GET("/warnings/:number", s.handleWarningDetail)
		v1.GET("/warnings/:number/geometry", s.handleWarningGeometry)
		v1.GET("/runs", s.handleRecentRuns)
		v1.GET("/locations", s.handleListLocations)
		v1.GET("/locations/:id/forecasts", s.handleLocationForecasts)
		v1.GET("/locations/:id/hourly", s.handleLocationHourly)
		v1.GET("/capabilities", s.handleCapabilities)
	}
}

// requestLogger emits one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
