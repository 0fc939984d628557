// Package senamhi talks to the public SENAMHI endpoints: the per-department
// warnings API and the forecast page. It performs no retries of its own;
// retry policy lives in the pipeline jobs.
package senamhi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
)

// Client fetches raw warning and forecast payloads from SENAMHI.
type Client struct {
	httpClient  *http.Client
	warningsAPI string
	forecastURL string
	userAgent   string
	logger      *slog.Logger
}

// NewClient creates a SENAMHI client with a fixed request timeout.
func NewClient(warningsAPI, forecastURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		warningsAPI: warningsAPI,
		forecastURL: forecastURL,
		userAgent:   userAgent,
		logger:      logger,
	}
}

// avisosResponse is the warnings API payload envelope.
type avisosResponse struct {
	Avisos []domain.RawAviso `json:"Avisos"`
}

// FetchAvisos returns the raw warning records published for one department.
// Unknown department names are an error; an empty Avisos array is not.
func (c *Client) FetchAvisos(ctx context.Context, department string) ([]domain.RawAviso, error) {
	deptID, ok := domain.DepartmentID(department)
	if !ok {
		return nil, fmt.Errorf("unknown department %q", department)
	}

	url := fmt.Sprintf("%s/%s", c.warningsAPI, deptID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch avisos for %s: %w", department, err)
	}

	var payload avisosResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode avisos for %s: %w", department, err)
	}
	return payload.Avisos, nil
}

// fetchForecastPage returns the raw HTML of the forecast page.
func (c *Client) fetchForecastPage(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, c.forecastURL)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast page: %w", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("senamhi API error: status %d: %s", resp.StatusCode, body)
	}

	return io.ReadAll(resp.Body)
}
