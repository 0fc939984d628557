package senamhi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

// FetchForecasts scrapes the forecast page and returns one LocationForecast
// per table cell whose location belongs to the requested departments. An
// empty department list selects every location on the page. Individual
// malformed cells and rows are logged and skipped; only a missing table or
// issue date fails the whole pass.
func (c *Client) FetchForecasts(ctx context.Context, departments []string) ([]domain.LocationForecast, error) {
	html, err := c.fetchForecastPage(ctx)
	if err != nil {
		return nil, err
	}
	return c.parseForecastPage(html, departments)
}

func (c *Client) parseForecastPage(html []byte, departments []string) ([]domain.LocationForecast, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse forecast page: %w", err)
	}

	issuedAt, err := parseIssuedDate(doc.Text())
	if err != nil {
		return nil, fmt.Errorf("forecast page: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("forecast table not found")
	}

	wanted := make(map[string]bool, len(departments))
	for _, d := range departments {
		wanted[domain.NormalizeDepartment(d)] = true
	}

	scrapedAt := domain.Now()
	var forecasts []domain.LocationForecast

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		nameSpan := cell.Find("span.nameCity").First()
		if nameSpan.Length() == 0 {
			return
		}

		fullName := strings.TrimSpace(nameSpan.Text())
		location, department, err := splitLocationName(fullName)
		if err != nil {
			c.logger.Warn("skipping forecast cell", "cell", fullName, "error", err)
			return
		}
		if len(wanted) > 0 && !wanted[domain.NormalizeDepartment(department)] {
			return
		}

		daily := c.parseForecastRows(cell, issuedAt.Year(), fullName)
		if len(daily) == 0 {
			c.logger.Warn("no forecast rows parsed", "cell", fullName)
			return
		}

		forecasts = append(forecasts, domain.LocationForecast{
			Location:   location,
			Department: domain.NormalizeDepartment(department),
			FullName:   fullName,
			IssuedAt:   issuedAt,
			ScrapedAt:  scrapedAt,
			Forecasts:  daily,
		})
	})

	return forecasts, nil
}

func (c *Client) parseForecastRows(cell *goquery.Selection, year int, fullName string) []domain.DailyForecast {
	var daily []domain.DailyForecast

	cell.Find("div.row.m-3").Each(func(_ int, row *goquery.Selection) {
		forecast, err := parseForecastRow(row, year)
		if err != nil {
			c.logger.Warn("skipping forecast row", "cell", fullName, "error", err)
			return
		}
		daily = append(daily, forecast)
	})

	return daily
}

func parseForecastRow(row *goquery.Selection, year int) (domain.DailyForecast, error) {
	cols := row.Find(`div[class*="col-sm-"]`)
	if cols.Length() < 5 {
		return domain.DailyForecast{}, fmt.Errorf("expected at least 5 columns, found %d", cols.Length())
	}

	dateText := strings.TrimSpace(cols.Eq(0).Text())
	date, err := parseForecastDate(dateText, year)
	if err != nil {
		return domain.DailyForecast{}, err
	}

	iconURL, _ := cols.Eq(1).Find("img").First().Attr("src")

	tempMax, err := parseTemperature(cols.Eq(2).Text())
	if err != nil {
		return domain.DailyForecast{}, err
	}
	tempMin, err := parseTemperature(cols.Eq(3).Text())
	if err != nil {
		return domain.DailyForecast{}, err
	}

	dayName := strings.TrimSpace(strings.SplitN(dateText, ",", 2)[0])

	return domain.DailyForecast{
		Date:        date,
		DayName:     dayName,
		TempMax:     tempMax,
		TempMin:     tempMin,
		WeatherIcon: extractIconType(iconURL),
		Description: strings.TrimSpace(cols.Eq(4).Text()),
	}, nil
}
