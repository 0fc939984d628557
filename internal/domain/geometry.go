package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// WarningGeometry is one hazard-zone multipolygon for one day of one nivel of
// one warning. The key is (WarningNumber, DayNumber, Nivel) rather than a
// warning row id: the same number recurs across departments but shares a
// single geometry set.
type WarningGeometry struct {
	ID            int64
	WarningNumber string
	DayNumber     int // 1-based offset from the warning's valid_from
	Nivel         int // per-polygon hazard sub-level, 1 when unparseable
	Geometry      orb.MultiPolygon
	ShapefileURL  string
	ShapefilePath string
	DownloadedAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
