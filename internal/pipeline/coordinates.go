package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

// coordinatesFile maps department -> location name -> [lat, lon].
type coordinatesFile map[string]map[string][2]float64

// CoordinateStats summarizes one populate pass over the known locations.
type CoordinateStats struct {
	Updated  int
	Skipped  int
	NotFound int
}

// LoadCoordinates reads a curated coordinates YAML file.
func LoadCoordinates(path string) (coordinatesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coordinates file: %w", err)
	}

	coords := coordinatesFile{}
	if err := yaml.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("parse coordinates file %s: %w", path, err)
	}
	return coords, nil
}

// PopulateCoordinates fills in latitude/longitude for stored locations from a
// curated YAML file. Locations that already carry coordinates are skipped
// unless overwrite is set; locations absent from the file are counted but
// left untouched.
func PopulateCoordinates(
	ctx context.Context,
	store storage.ForecastStore,
	path string,
	overwrite bool,
	logger *slog.Logger,
) (CoordinateStats, error) {
	var stats CoordinateStats

	coords, err := LoadCoordinates(path)
	if err != nil {
		return stats, err
	}

	locations, err := store.ListLocations(ctx)
	if err != nil {
		return stats, fmt.Errorf("list locations: %w", err)
	}

	for _, loc := range locations {
		if !overwrite && loc.Latitude != nil && loc.Longitude != nil {
			stats.Skipped++
			continue
		}

		pair, ok := coords[loc.Department][loc.Name]
		if !ok {
			stats.NotFound++
			logger.Debug("no coordinates for location",
				"name", loc.Name, "department", loc.Department)
			continue
		}

		if err := store.SetLocationCoordinates(ctx, loc.ID, pair[0], pair[1]); err != nil {
			return stats, fmt.Errorf("set coordinates for %s: %w", loc.FullName, err)
		}
		stats.Updated++
	}

	logger.Info("coordinates populated",
		"updated", stats.Updated, "skipped", stats.Skipped, "not_found", stats.NotFound)
	return stats, nil
}
