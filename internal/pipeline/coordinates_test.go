package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

const coordinatesYAML = `LIMA:
  SAN ISIDRO: [-12.0976, -77.0365]
  MIRAFLORES: [-12.1211, -77.0297]
CUSCO:
  CUSCO: [-13.5320, -71.9675]
`

func writeCoordinatesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coordinates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(coordinatesYAML), 0o644))
	return path
}

func TestLoadCoordinates(t *testing.T) {
	coords, err := LoadCoordinates(writeCoordinatesFile(t))
	require.NoError(t, err)

	assert.Equal(t, [2]float64{-12.0976, -77.0365}, coords["LIMA"]["SAN ISIDRO"])
	assert.Len(t, coords["LIMA"], 2)

	_, err = LoadCoordinates(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPopulateCoordinates(t *testing.T) {
	lat, lon := -13.5320, -71.9675
	newLocations := func() []domain.Location {
		return []domain.Location{
			{ID: 1, Name: "SAN ISIDRO", Department: "LIMA", FullName: "SAN ISIDRO - LIMA"},
			{ID: 2, Name: "CUSCO", Department: "CUSCO", FullName: "CUSCO - CUSCO", Latitude: &lat, Longitude: &lon},
			{ID: 3, Name: "IQUITOS", Department: "LORETO", FullName: "IQUITOS - LORETO"},
		}
	}
	path := writeCoordinatesFile(t)

	t.Run("fills missing coordinates only", func(t *testing.T) {
		store := &fakeForecastStore{locations: newLocations()}

		stats, err := PopulateCoordinates(context.Background(), store, path, false, testLogger())
		require.NoError(t, err)

		assert.Equal(t, CoordinateStats{Updated: 1, Skipped: 1, NotFound: 1}, stats)
		assert.Equal(t, [2]float64{-12.0976, -77.0365}, store.coords[1])
		assert.NotContains(t, store.coords, int64(2))
	})

	t.Run("overwrite refreshes existing coordinates", func(t *testing.T) {
		store := &fakeForecastStore{locations: newLocations()}

		stats, err := PopulateCoordinates(context.Background(), store, path, true, testLogger())
		require.NoError(t, err)

		assert.Equal(t, CoordinateStats{Updated: 2, Skipped: 0, NotFound: 1}, stats)
		assert.Contains(t, store.coords, int64(2))
	})
}
