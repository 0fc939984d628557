package main

import (
	"github.com/spf13/cobra"
)

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Migrate applies the schema to the configured database. The statements
are idempotent, so re-running against an existing database is safe.

When geospatial support is enabled the PostGIS extension and the
warning_geometries table are created as well.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
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
	a.logger.Info("schema migrated", "geospatial", a.cfg.GeospatialEnabled)
	return nil
}
