package main

import (
	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/web"
	"github.com/avisosperu/senamhi-tracker/internal/pipeline"
)

func getServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		Long: `Serve runs the long-lived service: the scrape scheduler fires the
forecast and warning jobs on their configured intervals while the HTTP
server exposes the stored data, Prometheus metrics and a health check.

The database schema is migrated on startup.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.Migrate(ctx, a.cfg.GeospatialEnabled); err != nil {
		return err
	}

	scheduler := pipeline.NewScheduler(a.jobs, a.cfg, a.logger, a.metrics)
	srv := web.New(a.cfg, a.db, a.geometries, a.db, a.db, a.meteo, a.logger)

	errCh := make(chan error, 2)
	go func() { errCh <- scheduler.Run(ctx) }()
	go func() { errCh <- srv.Run(ctx) }()

	// First error (or clean shutdown) wins; the second goroutine exits with
	// the shared context.
	err = <-errCh
	stop()
	if second := <-errCh; err == nil {
		err = second
	}

	a.logger.Info("shutdown complete")
	return err
}
