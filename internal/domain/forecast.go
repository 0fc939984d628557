package domain

import "time"

// Location is a forecast scrape target: one town within a department.
// Coordinates are backfilled from a static lookup table, independent of the
// warning subsystem.
type Location struct {
	ID         int64
	Name       string
	Department string
	FullName   string
	Active     bool
	Latitude   *float64
	Longitude  *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DailyForecast is one day's forecast as published on the SENAMHI page.
type DailyForecast struct {
	Date        time.Time
	DayName     string
	TempMax     int
	TempMin     int
	WeatherIcon string
	Description string
}

// LocationForecast bundles the daily forecasts scraped for one location in
// one pass, with the page's issue date.
type LocationForecast struct {
	Location   string
	Department string
	FullName   string
	IssuedAt   time.Time
	ScrapedAt  time.Time
	Forecasts  []DailyForecast
}

// Forecast is the persisted form of one DailyForecast row.
type Forecast struct {
	ID           int64
	LocationID   int64
	ForecastDate time.Time
	DayName      string
	TempMax      int
	TempMin      int
	WeatherIcon  string
	Description  string
	IssuedAt     time.Time
	ScrapedAt    time.Time
}
