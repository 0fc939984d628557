package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scrape pipeline.
type Metrics struct {
	WarningsScraped prometheus.Counter
	WarningsSaved   prometheus.Counter
	WarningsUpdated prometheus.Counter
	WarningsSkipped prometheus.Counter
	ParseErrors     prometheus.Counter
	FetchErrors     *prometheus.CounterVec // labels: source={warnings,forecasts,geoserver}

	// Run bookkeeping.
	RunsTotal      *prometheus.CounterVec // labels: job={forecasts,warnings}, status={success,failed,skipped}
	ScrapeDuration *prometheus.HistogramVec

	// Geometry sync.
	ShapefileDownloads *prometheus.CounterVec // labels: outcome={success,cached,failed,invalid}
	GeometriesSynced   prometheus.Counter
	GeospatialEnabled  prometheus.Gauge

	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all tracker metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		WarningsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "warnings_scraped_total",
			Help:      "Total normalized warnings produced by scrape passes.",
		}),
		WarningsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "warnings_saved_total",
			Help:      "Total new warning rows inserted.",
		}),
		WarningsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "warnings_updated_total",
			Help:      "Total existing warning rows updated under force.",
		}),
		WarningsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "warnings_skipped_total",
			Help:      "Total warnings left untouched because they already exist.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "parse_errors_total",
			Help:      "Total records or shapefile days dropped due to parse failures.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "fetch_errors_total",
			Help:      "Upstream fetch failures by source.",
		}, []string{"source"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "runs_total",
			Help:      "Finished scrape runs by job and terminal status.",
		}, []string{"job", "status"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "senamhi_tracker",
			Name:      "scrape_duration_seconds",
			Help:      "Duration of a complete scrape job.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
		ShapefileDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "shapefile_downloads_total",
			Help:      "Shapefile archive downloads by outcome.",
		}, []string{"outcome"}),
		GeometriesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "senamhi_tracker",
			Name:      "geometries_synced_total",
			Help:      "Total warning geometry rows written.",
		}),
		GeospatialEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "senamhi_tracker",
			Name:      "geospatial_enabled",
			Help:      "1 when the PostGIS-backed geometry pipeline is enabled.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "senamhi_tracker",
			Name:      "scheduler_running",
			Help:      "1 while the polling scheduler loop is active.",
		}),
	}

	prometheus.MustRegister(
		m.WarningsScraped,
		m.WarningsSaved,
		m.WarningsUpdated,
		m.WarningsSkipped,
		m.ParseErrors,
		m.FetchErrors,
		m.RunsTotal,
		m.ScrapeDuration,
		m.ShapefileDownloads,
		m.GeometriesSynced,
		m.GeospatialEnabled,
		m.SchedulerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		WarningsScraped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "warnings_scraped_total"}),
		WarningsSaved:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "warnings_saved_total"}),
		WarningsUpdated:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "warnings_updated_total"}),
		WarningsSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "warnings_skipped_total"}),
		ParseErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "parse_errors_total"}),
		FetchErrors:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "fetch_errors_total"}, []string{"source"}),
		RunsTotal:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "runs_total"}, []string{"job", "status"}),
		ScrapeDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "senamhi_tracker", Name: "scrape_duration_seconds"}, []string{"job"}),
		ShapefileDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "shapefile_downloads_total"}, []string{"outcome"}),
		GeometriesSynced:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "senamhi_tracker", Name: "geometries_synced_total"}),
		GeospatialEnabled:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "senamhi_tracker", Name: "geospatial_enabled"}),
		SchedulerRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "senamhi_tracker", Name: "scheduler_running"}),
	}
}
