package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

func getScrapeCmd() *cobra.Command {
	var (
		force       bool
		all         bool
		departments []string
	)

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a scrape job once",
	}
	scrapeCmd.PersistentFlags().BoolVar(&force, "force", false,
		"overwrite data that already exists")
	scrapeCmd.PersistentFlags().BoolVar(&all, "all", false,
		"scrape every department regardless of DEPARTMENTS")
	scrapeCmd.PersistentFlags().StringSliceVar(&departments, "departments", nil,
		"departments to scrape (comma-separated, overrides DEPARTMENTS)")

	targets := func() []string {
		if all {
			return domain.AllDepartments()
		}
		out := make([]string, 0, len(departments))
		for _, d := range departments {
			if name := strings.ToUpper(strings.TrimSpace(d)); name != "" {
				out = append(out, name)
			}
		}
		return out
	}

	scrapeCmd.AddCommand(
		&cobra.Command{
			Use:   "warnings",
			Short: "Fetch active meteorological warnings",
			Long: `Fetches the current warning list from SENAMHI's aviso API for the
selected departments and reconciles it against the stored warnings.
Existing rows are only overwritten with --force.

When geospatial support is enabled, hazard-zone geometries for newly
active warnings are synced afterwards.`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signalContext()
				defer stop()

				a, err := newApp(ctx)
				if err != nil {
					return err
				}
				defer a.Close()

				result, err := a.jobs.ScrapeWarnings(ctx, targets(), force)
				if err != nil {
					return err
				}
				a.logger.Info("warnings scrape finished",
					"found", result.Found,
					"saved", result.Saved,
					"updated", result.Updated,
					"skipped", result.Skipped)
				return nil
			},
		},
		&cobra.Command{
			Use:   "forecasts",
			Short: "Fetch seven-day forecasts",
			Long: `Fetches the seven-day forecast page from SENAMHI and stores a forecast
set per location. A run record tracks the outcome; if forecasts for
today's issue date already exist the run is skipped unless --force is
given.`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signalContext()
				defer stop()

				a, err := newApp(ctx)
				if err != nil {
					return err
				}
				defer a.Close()

				return a.jobs.ScrapeForecasts(ctx, targets(), force)
			},
		},
	)
	return scrapeCmd
}
