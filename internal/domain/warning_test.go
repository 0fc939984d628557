package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	from := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected Status
	}{
		{"before window", from.Add(-time.Hour), StatusEmitido},
		{"at window start", from, StatusVigente},
		{"inside window", from.Add(12 * time.Hour), StatusVigente},
		{"at window end", until, StatusVigente},
		{"after window", until.Add(time.Second), StatusVencido},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(from, until, tt.now))
		})
	}
}

func TestCalculateWarningDays(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		until    time.Time
		expected int
	}{
		{
			"same day",
			time.Date(2025, 11, 18, 8, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 18, 20, 0, 0, 0, time.UTC),
			1,
		},
		{
			"midnight to next midnight",
			time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC),
			2,
		},
		{
			"three calendar days",
			time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 20, 6, 0, 0, 0, time.UTC),
			3,
		},
		{
			"inverted window clamps to one",
			time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateWarningDays(tt.from, tt.until))
		})
	}
}

func TestMapSeverity(t *testing.T) {
	tests := []struct {
		name     string
		nivel    string
		color    string
		expected Severity
	}{
		{"color rojo", "2", "ROJO", SeverityRed}, // color wins over nivel
		{"color lowercase", "", "naranja", SeverityOrange},
		{"color verde", "", "VERDE", SeverityGreen},
		{"color amarillo", "", "AMARILLO", SeverityYellow},
		{"nivel fallback", "3", "", SeverityOrange},
		{"nivel one", "1", "", SeverityGreen},
		{"nivel four", "4", "MORADO", SeverityRed},
		{"nothing resolves", "9", "", SeverityYellow},
		{"empty everything", "", "", SeverityYellow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSeverity(tt.nivel, tt.color))
		})
	}
}

func TestSortActive(t *testing.T) {
	now := time.Date(2025, 11, 18, 12, 0, 0, 0, time.UTC)

	vigenteSoon := Warning{WarningNumber: "1", Status: StatusVigente, ValidUntil: now.Add(2 * time.Hour)}
	vigenteLater := Warning{WarningNumber: "2", Status: StatusVigente, ValidUntil: now.Add(30 * time.Hour)}
	emitidoSoon := Warning{WarningNumber: "3", Status: StatusEmitido, ValidFrom: now.Add(6 * time.Hour)}
	emitidoLater := Warning{WarningNumber: "4", Status: StatusEmitido, ValidFrom: now.Add(48 * time.Hour)}

	warnings := []Warning{emitidoLater, vigenteLater, emitidoSoon, vigenteSoon}
	SortActive(warnings, now)

	var order []string
	for _, w := range warnings {
		order = append(order, w.WarningNumber)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, order)
}

func TestGroupByNumber(t *testing.T) {
	warnings := []Warning{
		{WarningNumber: "418", Department: "LIMA", Severity: SeverityYellow, Status: StatusEmitido, Title: "Lluvias intensas"},
		{WarningNumber: "419", Department: "PUNO", Severity: SeverityOrange, Status: StatusVigente, Title: "Descenso de temperatura"},
		{WarningNumber: "418", Department: "CUSCO", Severity: SeverityRed, Status: StatusVigente, Title: "Lluvias intensas"},
	}

	groups := GroupByNumber(warnings)
	assert.Len(t, groups, 2)

	assert.Equal(t, "418", groups[0].WarningNumber)
	assert.Equal(t, []string{"LIMA", "CUSCO"}, groups[0].Departments)
	assert.Equal(t, SeverityRed, groups[0].Severity) // highest member severity
	assert.Equal(t, StatusVigente, groups[0].Status)

	assert.Equal(t, "419", groups[1].WarningNumber)
	assert.Equal(t, []string{"PUNO"}, groups[1].Departments)
}

func TestDepartmentID(t *testing.T) {
	id, ok := DepartmentID("lima")
	assert.True(t, ok)
	assert.Equal(t, "15", id)

	id, ok = DepartmentID(" Madre de Dios ")
	assert.True(t, ok)
	assert.Equal(t, "17", id)

	_, ok = DepartmentID("ATLANTIS")
	assert.False(t, ok)

	assert.Len(t, AllDepartments(), 25)
}
