// Package openmeteo is a thin client for the Open-Meteo forecast API, used to
// enrich stored locations with hourly model forecasts. The response body is
// passed through as-is; this tracker does not reinterpret Open-Meteo data.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultVariables are the hourly series requested when the caller does not
// name any.
var DefaultVariables = []string{"temperature_2m", "precipitation", "cloud_cover"}

const defaultForecastDays = 7

// Client calls the Open-Meteo forecast endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Request selects the forecast series for one coordinate pair.
type Request struct {
	Latitude     float64
	Longitude    float64
	Variables    []string
	Models       []string
	ForecastDays int
}

func (c *Client) buildURL(req Request) string {
	variables := req.Variables
	if len(variables) == 0 {
		variables = DefaultVariables
	}
	days := req.ForecastDays
	if days <= 0 {
		days = defaultForecastDays
	}

	params := url.Values{
		"latitude":      {strconv.FormatFloat(req.Latitude, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(req.Longitude, 'f', -1, 64)},
		"hourly":        {strings.Join(variables, ",")},
		"forecast_days": {strconv.Itoa(days)},
		"timezone":      {"America/Lima"},
	}
	if len(req.Models) > 0 {
		params.Set("models", strings.Join(req.Models, ","))
	}
	return c.baseURL + "?" + params.Encode()
}

// HourlyForecast fetches the hourly forecast and returns the raw JSON body.
func (c *Client) HourlyForecast(ctx context.Context, req Request) (json.RawMessage, error) {
	fullURL := c.buildURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch open-meteo forecast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read open-meteo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo error: status %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("open-meteo returned invalid JSON")
	}

	c.logger.Debug("open-meteo forecast fetched",
		"lat", req.Latitude, "lon", req.Longitude, "bytes", len(body))
	return body, nil
}
