package domain

import (
	"sort"
	"time"
)

// Severity is the four-step hazard scale used by SENAMHI, derived from the
// color code of an aviso (with a numeric nivel fallback, see MapSeverity).
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityOrange Severity = "orange"
	SeverityRed    Severity = "red"
)

// severityRank orders severities for comparisons: green < yellow < orange < red.
var severityRank = map[Severity]int{
	SeverityGreen:  1,
	SeverityYellow: 2,
	SeverityOrange: 3,
	SeverityRed:    4,
}

// Rank returns the ordinal position of the severity, higher is more severe.
// Unknown severities rank below green.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Status is the lifecycle stage of a warning relative to its validity window.
// The Spanish terms are SENAMHI's own and are kept as the wire/storage values.
type Status string

const (
	StatusEmitido Status = "emitido" // issued, validity window not yet open
	StatusVigente Status = "vigente" // currently active
	StatusVencido Status = "vencido" // expired
)

// Warning is the canonical representation of one SENAMHI hazard advisory for
// one department. The same warning number legitimately appears for several
// departments at once (one event, many affected regions); the identity used
// for reconciliation is always (WarningNumber, Department).
type Warning struct {
	ID            int64
	SenamhiID     *int64 // upstream numeric id, absent on older records
	WarningNumber string
	Department    string
	Severity      Severity
	Status        Status
	Title         string
	Description   string
	ValidFrom     time.Time
	ValidUntil    time.Time
	IssuedAt      time.Time
	ScrapedAt     time.Time
}

// Key returns the reconciliation identity of the warning.
func (w Warning) Key() WarningKey {
	return WarningKey{Number: w.WarningNumber, Department: w.Department}
}

// WarningKey identifies one department-scoped warning row.
type WarningKey struct {
	Number     string
	Department string
}

// DeriveStatus computes the lifecycle stage of a validity window at a given
// instant: vigente while from <= now <= until, emitido before, vencido after.
func DeriveStatus(from, until, now time.Time) Status {
	switch {
	case !now.Before(from) && !now.After(until):
		return StatusVigente
	case from.After(now):
		return StatusEmitido
	default:
		return StatusVencido
	}
}

// IsActive reports whether the warning's validity window makes it relevant at
// the given instant. Active means vigente or emitido; the stored status
// snapshot is deliberately ignored so that a stale row cannot disagree with
// the dates.
func (w Warning) IsActive(now time.Time) bool {
	return DeriveStatus(w.ValidFrom, w.ValidUntil, now) != StatusVencido
}

// CalculateWarningDays returns the number of calendar days a warning spans,
// counting both the start and the end day. Same-day windows count as one day.
func CalculateWarningDays(validFrom, validUntil time.Time) int {
	from := truncateToDay(validFrom)
	until := truncateToDay(validUntil)
	days := int(until.Sub(from).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SortActive orders warnings for "current hazards" views: vigente before
// emitido, and within the same status by ascending distance between now and
// the warning's relevant boundary (expiry for vigente, start for emitido),
// so the soonest-relevant entries come first.
func SortActive(warnings []Warning, now time.Time) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Status != b.Status {
			return a.Status == StatusVigente
		}
		return timeDistance(a, now) < timeDistance(b, now)
	})
}

func timeDistance(w Warning, now time.Time) time.Duration {
	boundary := w.ValidFrom
	if w.Status == StatusVigente {
		boundary = w.ValidUntil
	}
	d := now.Sub(boundary)
	if d < 0 {
		return -d
	}
	return d
}

// WarningGroup summarizes all department rows that share one warning number.
// Grouping is display-only: the department-scoped rows stay the unit of
// storage and update.
type WarningGroup struct {
	WarningNumber string
	Title         string
	Severity      Severity
	Status        Status
	ValidFrom     time.Time
	ValidUntil    time.Time
	Departments   []string
}

// GroupByNumber folds department-scoped warnings into per-number summaries,
// keeping the order of first appearance. The group takes the highest severity
// among its members and reports vigente if any member is vigente.
func GroupByNumber(warnings []Warning) []WarningGroup {
	var groups []WarningGroup
	index := make(map[string]int)

	for _, w := range warnings {
		i, ok := index[w.WarningNumber]
		if !ok {
			index[w.WarningNumber] = len(groups)
			groups = append(groups, WarningGroup{
				WarningNumber: w.WarningNumber,
				Title:         w.Title,
				Severity:      w.Severity,
				Status:        w.Status,
				ValidFrom:     w.ValidFrom,
				ValidUntil:    w.ValidUntil,
				Departments:   []string{w.Department},
			})
			continue
		}
		g := &groups[i]
		g.Departments = append(g.Departments, w.Department)
		if w.Severity.Rank() > g.Severity.Rank() {
			g.Severity = w.Severity
		}
		if w.Status == StatusVigente {
			g.Status = StatusVigente
		}
	}
	return groups
}
