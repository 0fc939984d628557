package domain

import (
	"sort"
	"strings"
)

// departmentIDs maps department names to the numeric identifiers the SENAMHI
// warnings API uses in its URL path.
var departmentIDs = map[string]string{
	"AMAZONAS":      "01",
	"ANCASH":        "02",
	"APURIMAC":      "03",
	"AREQUIPA":      "04",
	"AYACUCHO":      "05",
	"CAJAMARCA":     "06",
	"CALLAO":        "07",
	"CUSCO":         "08",
	"HUANCAVELICA":  "09",
	"HUANUCO":       "10",
	"ICA":           "11",
	"JUNIN":         "12",
	"LA LIBERTAD":   "13",
	"LAMBAYEQUE":    "14",
	"LIMA":          "15",
	"LORETO":        "16",
	"MADRE DE DIOS": "17",
	"MOQUEGUA":      "18",
	"PASCO":         "19",
	"PIURA":         "20",
	"PUNO":          "21",
	"SAN MARTIN":    "22",
	"TACNA":         "23",
	"TUMBES":        "24",
	"UCAYALI":       "25",
}

// NormalizeDepartment upper-cases and trims a department name.
func NormalizeDepartment(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DepartmentID returns the upstream identifier for a department name, or
// false if the name is not a known department.
func DepartmentID(name string) (string, bool) {
	id, ok := departmentIDs[NormalizeDepartment(name)]
	return id, ok
}

// AllDepartments returns every known department name in alphabetical order.
func AllDepartments() []string {
	names := make([]string, 0, len(departmentIDs))
	for name := range departmentIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
