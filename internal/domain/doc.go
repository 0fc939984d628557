// Package domain models SENAMHI weather warnings and forecasts for Peru.
//
// # Data Sources
//
// Warnings come from the SENAMHI emergency warnings API, queried once per
// department using a fixed two-digit department identifier (LIMA → 15). The
// response carries an "Avisos" array of records with Spanish field names
// (numero, titulo, fechaEmision, nivel, colorNivel, ...), mirrored by
// [RawAviso]. Forecasts come from the public forecast page's HTML table and
// hazard-zone polygons from the SENAMHI geoserver as shapefile archives; both
// are handled by their adapters, this package only defines the canonical
// types.
//
// # SENAMHI Conventions
//
// Timestamps:
//
//	DD/MM/YYYY HH:MM:SS in Peru local time, no zone marker,
//	e.g. "18/11/2025 00:00:00". Parsed by [ParseSenamhiTime].
//
// Severity:
//
//	The color code is authoritative: VERDE, AMARILLO, NARANJA, ROJO
//	(case-insensitive). When the color is missing or unrecognized the
//	numeric nivel field maps 1→green, 2→yellow, 3→orange, 4→red, and
//	anything else defaults to yellow. See [MapSeverity].
//
// Status:
//
//	Derived from the validity window, never taken from upstream:
//	emitido before valid_from, vigente inside the window, vencido after
//	valid_until. Expired warnings are dropped at normalization time unless
//	explicitly retained. See [DeriveStatus] and [ParseAviso].
//
// Identity:
//
//	One warning number can cover several departments at once; each
//	(warning_number, department) pair is a distinct record. Geometries are
//	shared per number and keyed (warning_number, day_number, nivel).
//
// Exclusions:
//
//	Forest-fire advisories ("Aviso de incendios forestales ...") travel
//	through the same API but are out of scope and filtered by title.
package domain
