package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

func getShapefilesCmd() *cobra.Command {
	shapefilesCmd := &cobra.Command{
		Use:   "shapefiles",
		Short: "Manage warning hazard-zone geometries",
	}
	shapefilesCmd.AddCommand(getShapefilesSyncCmd(), getShapefilesCleanupCmd())
	return shapefilesCmd
}

func getShapefilesSyncCmd() *cobra.Command {
	var force bool

	syncCmd := &cobra.Command{
		Use:   "sync [warning-number]",
		Short: "Download and store geometries for warnings",
		Long: `Sync downloads shapefile archives from SENAMHI's GeoServer and stores
the hazard-zone polygons. Without an argument every active warning that
has no stored geometries yet is synced. With a warning number only that
warning is synced; --force replaces its stored geometries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				return a.geosync.SyncActive(ctx)
			}

			number := args[0]
			warnings, err := a.db.ListWarnings(ctx, storage.WarningQuery{Number: number})
			if err != nil {
				return err
			}
			if len(warnings) == 0 {
				return fmt.Errorf("warning %s not found", number)
			}

			var synced int
			if force {
				synced, err = a.geosync.Resync(ctx, warnings[0])
			} else {
				synced, err = a.geosync.SyncWarning(ctx, warnings[0], false)
			}
			if err != nil {
				return err
			}
			a.logger.Info("shapefile sync finished", "warning", number, "geometries", synced)
			return nil
		},
	}
	syncCmd.Flags().BoolVar(&force, "force", false, "replace stored geometries")
	return syncCmd
}

func getShapefilesCleanupCmd() *cobra.Command {
	var days int

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete cached shapefile archives",
		Long: `Cleanup deletes downloaded shapefile archives from the local cache
directory once they are older than the given number of days. Stored
geometries are not touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.geoserver.CleanupOlderThan(time.Duration(days) * 24 * time.Hour)
			if err != nil {
				return err
			}
			a.logger.Info("shapefile cache cleaned", "removed", removed, "max_age_days", days)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&days, "days", 7, "delete archives older than this many days")
	return cleanupCmd
}
