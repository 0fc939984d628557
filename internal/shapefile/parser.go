// Package shapefile validates and parses SENAMHI warning shapefile archives.
//
// Archives come from the geoserver as ZIP files holding one polygon layer.
// Each feature carries a "nivel" attribute ("Nivel 1".."Nivel 4") naming the
// severity band the polygon belongs to. Coordinates arrive either in WGS84 or
// in one of the Peruvian UTM zones (17S, 18S, 19S) and are normalized to
// EPSG:4326 on parse.
package shapefile

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// Feature is one polygon record with its severity band.
type Feature struct {
	Geometry orb.MultiPolygon
	Nivel    int
}

// Parser reads warning geometry out of shapefile ZIP archives.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Validate checks that the archive carries the three mandatory shapefile
// components (.shp, .shx, .dbf). Anything else is reported with the missing
// extensions named.
func (p *Parser) Validate(zipPath string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	present := map[string]bool{}
	for _, f := range zr.File {
		present[strings.ToLower(filepath.Ext(f.Name))] = true
	}

	var missing []string
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if !present[ext] {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid shapefile archive: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Parse validates the archive, extracts it to a temp directory and returns
// one Feature per polygon record. Non-polygon shapes are skipped. The temp
// directory is removed before returning.
func (p *Parser) Parse(zipPath string) ([]Feature, error) {
	if err := p.Validate(zipPath); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "senamhi-shp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	shpPath, err := extract(zipPath, dir)
	if err != nil {
		return nil, err
	}

	reproject, err := detectProjection(shpPath)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	nivelField := -1
	for i, field := range reader.Fields() {
		if strings.EqualFold(field.String(), "nivel") {
			nivelField = i
			break
		}
	}

	var features []Feature
	for reader.Next() {
		row, shape := reader.Shape()
		nivel := 1
		if nivelField >= 0 {
			nivel = parseNivel(reader.ReadAttribute(row, nivelField))
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			p.logger.Warn("skipping non-polygon shape", "path", filepath.Base(zipPath))
			continue
		}

		geom := toMultiPolygon(poly, reproject)
		if len(geom) == 0 {
			continue
		}
		features = append(features, Feature{Geometry: geom, Nivel: nivel})
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}

	if len(features) == 0 {
		return nil, fmt.Errorf("no valid geometries in %s", filepath.Base(zipPath))
	}

	p.logger.Debug("parsed shapefile", "path", filepath.Base(zipPath), "features", len(features))
	return features, nil
}

// GroupByNivel merges all features of the same severity band into a single
// multipolygon per nivel.
func GroupByNivel(features []Feature) map[int]orb.MultiPolygon {
	grouped := map[int]orb.MultiPolygon{}
	for _, f := range features {
		grouped[f.Nivel] = append(grouped[f.Nivel], f.Geometry...)
	}
	return grouped
}

// Nivels returns the severity bands present in a grouped set, ascending.
func Nivels(grouped map[int]orb.MultiPolygon) []int {
	nivels := make([]int, 0, len(grouped))
	for n := range grouped {
		nivels = append(nivels, n)
	}
	sort.Ints(nivels)
	return nivels
}

// parseNivel reads the trailing token of values like "Nivel 3". dbf
// character fields may be NUL-padded rather than space-padded, so NULs are
// stripped before tokenizing. Unparseable values fall back to band 1.
func parseNivel(value string) int {
	fields := strings.Fields(strings.Trim(value, "\x00 \t"))
	if len(fields) == 0 {
		return 1
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// extract unpacks the archive into dir and returns the path of the .shp file.
// Entry names are flattened to their base name.
func extract(zipPath, dir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	shpPath := ""
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(f.Name))
		if err := extractFile(f, dst); err != nil {
			return "", err
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".shp") && shpPath == "" {
			shpPath = dst
		}
	}
	if shpPath == "" {
		return "", fmt.Errorf("no .shp entry in archive")
	}
	return shpPath, nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}

// detectProjection inspects the sidecar .prj file and returns a point
// transform into WGS84. Data already in geographic coordinates (or with no
// .prj at all) passes through unchanged; the southern UTM zones covering Peru
// are reprojected.
func detectProjection(shpPath string) (func(x, y float64) (float64, float64), error) {
	identity := func(x, y float64) (float64, float64) { return x, y }

	prj, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj")
	if err != nil {
		if os.IsNotExist(err) {
			return identity, nil
		}
		return nil, fmt.Errorf("read .prj: %w", err)
	}

	wkt := strings.ToUpper(string(prj))
	if !strings.Contains(wkt, "UTM") {
		return identity, nil
	}

	for _, zone := range []int{17, 18, 19} {
		if strings.Contains(wkt, fmt.Sprintf("ZONE_%dS", zone)) ||
			strings.Contains(wkt, fmt.Sprintf("ZONE %dS", zone)) ||
			strings.Contains(wkt, fmt.Sprintf("327%d", zone)) {
			z := zone
			return func(x, y float64) (float64, float64) {
				lat, lon, err := UTM.ToLatLon(x, y, z, "", false)
				if err != nil {
					return math.NaN(), math.NaN()
				}
				return lon, lat
			}, nil
		}
	}
	return nil, fmt.Errorf("unsupported projection: %s", firstLine(string(prj)))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return strings.TrimSpace(s)
}

// toMultiPolygon converts a shapefile polygon record. Shapefile rings wind
// clockwise for outer boundaries and counter-clockwise for holes; each
// clockwise ring starts a new polygon and subsequent holes attach to it.
func toMultiPolygon(poly *shp.Polygon, transform func(x, y float64) (float64, float64)) orb.MultiPolygon {
	var mp orb.MultiPolygon

	parts := poly.Parts
	points := poly.Points
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(start)+1)
		for _, pt := range points[start:end] {
			x, y := transform(pt.X, pt.Y)
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			ring = append(ring, orb.Point{x, y})
		}
		if len(ring) < 3 {
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		if isClockwise(ring) || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
		} else {
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
		}
	}
	return mp
}

// isClockwise reports ring winding via the shoelace sum.
func isClockwise(ring orb.Ring) bool {
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		sum += (ring[i+1][0] - ring[i][0]) * (ring[i+1][1] + ring[i][1])
	}
	return sum > 0
}
