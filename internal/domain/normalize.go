package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// senamhiTimeLayout is the timestamp format used by the warnings API,
// e.g. "18/11/2025 00:00:00". Times are Peru local time with no zone marker.
const senamhiTimeLayout = "02/01/2006 15:04:05"

// excludedTitleFragment filters forest-fire advisories, which SENAMHI
// publishes through the same API but this tracker does not cover.
const excludedTitleFragment = "incendios forestales"

// RawAviso mirrors one entry of the "Avisos" array returned by the warnings
// API. All fields arrive as strings except the numeric id.
type RawAviso struct {
	ID           int64  `json:"id"`
	Numero       string `json:"numero"`
	Titulo       string `json:"titulo"`
	Descripcion  string `json:"descripcion"`
	FechaEmision string `json:"fechaEmision"`
	FechaInicio  string `json:"fechaInicio"`
	FechaFin     string `json:"fechaFin"`
	Nivel        string `json:"nivel"`
	ColorNivel   string `json:"colorNivel"`
}

// MapSeverity resolves a severity from the aviso color code, falling back to
// the numeric nivel when the color is absent or unrecognized, and to yellow
// when neither resolves. The color always wins over the nivel.
func MapSeverity(nivel, color string) Severity {
	switch strings.ToUpper(strings.TrimSpace(color)) {
	case "VERDE":
		return SeverityGreen
	case "AMARILLO":
		return SeverityYellow
	case "NARANJA":
		return SeverityOrange
	case "ROJO":
		return SeverityRed
	}

	switch strings.TrimSpace(nivel) {
	case "1":
		return SeverityGreen
	case "2":
		return SeverityYellow
	case "3":
		return SeverityOrange
	case "4":
		return SeverityRed
	}
	return SeverityYellow
}

// ParseSenamhiTime parses the DD/MM/YYYY HH:MM:SS timestamps of the warnings
// API in local time.
func ParseSenamhiTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(senamhiTimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse senamhi time %q: %w", s, err)
	}
	return t, nil
}

// ParseAviso normalizes one raw aviso fetched under the given department into
// a canonical Warning. It returns (nil, nil) for records that are filtered
// out rather than malformed: forest-fire advisories, and expired warnings
// unless retainExpired is set. A malformed timestamp fails the whole record.
func ParseAviso(raw RawAviso, department string, retainExpired bool) (*Warning, error) {
	if strings.Contains(strings.ToLower(raw.Titulo), excludedTitleFragment) {
		return nil, nil
	}

	issuedAt, err := ParseSenamhiTime(raw.FechaEmision)
	if err != nil {
		return nil, fmt.Errorf("aviso %s: %w", raw.Numero, err)
	}
	validFrom, err := ParseSenamhiTime(raw.FechaInicio)
	if err != nil {
		return nil, fmt.Errorf("aviso %s: %w", raw.Numero, err)
	}
	validUntil, err := ParseSenamhiTime(raw.FechaFin)
	if err != nil {
		return nil, fmt.Errorf("aviso %s: %w", raw.Numero, err)
	}

	now := clock.Now()
	status := DeriveStatus(validFrom, validUntil, now)
	if status == StatusVencido && !retainExpired {
		return nil, nil
	}

	senamhiID := raw.ID
	w := &Warning{
		WarningNumber: raw.Numero,
		Department:    NormalizeDepartment(department),
		Severity:      MapSeverity(raw.Nivel, raw.ColorNivel),
		Status:        status,
		Title:         raw.Titulo,
		Description:   raw.Descripcion,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		IssuedAt:      issuedAt,
		ScrapedAt:     now,
	}
	if senamhiID != 0 {
		w.SenamhiID = &senamhiID
	}
	return w, nil
}

// NormalizeAvisos runs ParseAviso over a batch. Malformed records are logged
// and dropped so one bad entry never aborts the department's batch.
func NormalizeAvisos(raws []RawAviso, department string, retainExpired bool, logger *slog.Logger) []Warning {
	warnings := make([]Warning, 0, len(raws))
	for _, raw := range raws {
		w, err := ParseAviso(raw, department, retainExpired)
		if err != nil {
			logger.Warn("skipping malformed aviso",
				"department", department,
				"numero", raw.Numero,
				"error", err,
			)
			continue
		}
		if w == nil {
			continue
		}
		warnings = append(warnings, *w)
	}
	return warnings
}
