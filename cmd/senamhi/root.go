package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/geoserver"
	"github.com/avisosperu/senamhi-tracker/internal/adapter/openmeteo"
	"github.com/avisosperu/senamhi-tracker/internal/adapter/senamhi"
	"github.com/avisosperu/senamhi-tracker/internal/config"
	"github.com/avisosperu/senamhi-tracker/internal/observability"
	"github.com/avisosperu/senamhi-tracker/internal/pipeline"
	"github.com/avisosperu/senamhi-tracker/internal/shapefile"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "senamhi",
		Short: "Track SENAMHI weather warnings and forecasts for Peru",
		Long: `senamhi scrapes meteorological warnings and seven-day forecasts
published by SENAMHI (Peru's national weather service), stores them in
PostgreSQL, and serves them over a JSON API.

Warning hazard zones are fetched as shapefiles from SENAMHI's GeoServer
and stored as PostGIS geometries when the database supports it.

Configuration comes from environment variables (and an optional .env
file); DATABASE_URL is required.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		getServeCmd(),
		getMigrateCmd(),
		getScrapeCmd(),
		getShapefilesCmd(),
		getWarningsCmd(),
		getRunsCmd(),
		getCoordinatesCmd(),
	)
	return rootCmd
}

// Execute runs the CLI. Errors are logged before returning so main can just
// set the exit code.
func Execute() error {
	err := getRootCmd().Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

// app bundles the wired service graph shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *observability.Metrics
	db         *storage.Postgres
	geometries storage.GeometryStore
	meteo      *openmeteo.Client
	jobs       *pipeline.Jobs
	geosync    *pipeline.GeometrySync
	geoserver  *geoserver.Client
}

// newApp loads config, connects to the database and wires the adapters.
// Callers must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var geometries storage.GeometryStore = db
	if cfg.GeospatialEnabled {
		metrics.GeospatialEnabled.Set(1)
	} else {
		geometries = storage.NopGeometryStore{}
		logger.Info("geospatial support disabled")
	}

	client := senamhi.NewClient(cfg.SenamhiWarningsAPI, cfg.SenamhiForecastURL, cfg.UserAgent, cfg.RequestTimeout, logger)
	geoClient, err := geoserver.NewClient(cfg.GeoserverURL, cfg.ShapefileDir, cfg.RequestTimeout, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	geosync := pipeline.NewGeometrySync(db, geometries, geoClient, shapefile.NewParser(logger), logger, metrics)
	reconciler := pipeline.NewReconciler(db, logger, metrics)
	jobs := pipeline.NewJobs(cfg, client, client, reconciler, db, db, geosync, logger, metrics)

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		db:         db,
		geometries: geometries,
		meteo:      openmeteo.NewClient(cfg.OpenMeteoURL, cfg.RequestTimeout, logger),
		jobs:       jobs,
		geosync:    geosync,
		geoserver:  geoClient,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
