package main

import (
	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/pipeline"
)

func getCoordinatesCmd() *cobra.Command {
	var (
		file      string
		overwrite bool
	)

	populateCmd := &cobra.Command{
		Use:   "populate",
		Short: "Fill location coordinates from a curated YAML file",
		Long: `Populate assigns latitude/longitude to stored forecast locations from
a curated YAML file (department -> location -> [lat, lon]). Locations
that already have coordinates are skipped unless --overwrite is given.

Coordinates enable the hourly Open-Meteo forecast endpoint for a
location.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			path := file
			if path == "" {
				path = a.cfg.CoordinatesFile
			}

			stats, err := pipeline.PopulateCoordinates(ctx, a.db, path, overwrite, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("populate finished",
				"updated", stats.Updated, "skipped", stats.Skipped, "not_found", stats.NotFound)
			return nil
		},
	}
	populateCmd.Flags().StringVar(&file, "file", "", "coordinates YAML file (default COORDINATES_FILE)")
	populateCmd.Flags().BoolVar(&overwrite, "overwrite", false, "refresh coordinates that are already set")

	coordinatesCmd := &cobra.Command{
		Use:   "coordinates",
		Short: "Manage location coordinates",
	}
	coordinatesCmd.AddCommand(populateCmd)
	return coordinatesCmd
}
