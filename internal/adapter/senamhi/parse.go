package senamhi

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// temperatureRe matches the "22ºC" cells of the forecast table.
	temperatureRe = regexp.MustCompile(`(-?\d+)ºC`)

	// forecastDateRe parses row dates like "martes, 11 de noviembre".
	forecastDateRe = regexp.MustCompile(`(\p{L}+),\s+(\d+)\s+de\s+(\p{L}+)`)

	// issuedDateRe parses the page header, e.g.
	// "Emisión: martes, 11 de noviembre del 2025".
	issuedDateRe = regexp.MustCompile(`emisi[oó]n:\s*(\p{L}+),\s+(\d+)\s+de\s+(\p{L}+)\s+del\s+(\d{4})`)

	// locationNameRe splits "SAN ISIDRO - LIMA" into town and department.
	locationNameRe = regexp.MustCompile(`^([A-ZÁÉÍÓÚÑ\s]+?)\s*-\s*([A-ZÁÉÍÓÚÑ\s]+)$`)
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// parseTemperature extracts the integer degrees from text like "22ºC".
func parseTemperature(text string) (int, error) {
	m := temperatureRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("cannot parse temperature from %q", text)
	}
	return strconv.Atoi(m[1])
}

// parseForecastDate parses a Spanish weekday date, borrowing the year from
// the caller (the page never prints it on forecast rows).
func parseForecastDate(text string, year int) (time.Time, error) {
	m := forecastDateRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return time.Time{}, fmt.Errorf("cannot parse date from %q", text)
	}

	day, _ := strconv.Atoi(m[2])
	month, ok := spanishMonths[m[3]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", m[3])
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local), nil
}

// parseIssuedDate extracts the page's emission date, midnight local time.
func parseIssuedDate(text string) (time.Time, error) {
	m := issuedDateRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return time.Time{}, fmt.Errorf("cannot parse issued date")
	}

	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[4])
	month, ok := spanishMonths[m[3]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", m[3])
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local), nil
}

// extractIconType reduces an icon URL to its base name, e.g.
// "/img/iconos/lluvia_moderada.png" -> "lluvia_moderada".
func extractIconType(iconURL string) string {
	base := path.Base(iconURL)
	return strings.TrimSuffix(base, path.Ext(base))
}

// splitLocationName splits a "TOWN - DEPARTMENT" cell title.
func splitLocationName(fullName string) (location, department string, err error) {
	m := locationNameRe.FindStringSubmatch(strings.TrimSpace(fullName))
	if m == nil {
		return "", "", fmt.Errorf("cannot parse location from %q", fullName)
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), nil
}
