// Package geoserver downloads warning shapefile archives from the SENAMHI
// geoserver WFS endpoint. Archives are cached on disk keyed by
// (warning_number, day, year); an existing file is never re-downloaded.
package geoserver

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Client fetches shapefile ZIP archives for warning days.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	downloadDir string
	logger      *slog.Logger
}

// Download describes one fetched (or cache-hit) archive.
type Download struct {
	Path   string
	URL    string
	Cached bool
}

// NewClient creates a geoserver client, ensuring the download directory exists.
func NewClient(baseURL, downloadDir string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		downloadDir: downloadDir,
		logger:      logger,
	}, nil
}

// BuildShapefileURL builds the WFS GetFeature URL for one warning day.
func (c *Client) BuildShapefileURL(warningNumber string, day, year int) string {
	filename := fmt.Sprintf("shp_aviso_%s_%d_%d.zip", warningNumber, day, year)
	viewparams := fmt.Sprintf("%s_%d_%d", warningNumber, day, year)

	params := url.Values{
		"service":        {"WFS"},
		"version":        {"1.0.0"},
		"request":        {"GetFeature"},
		"typeName":       {"g_aviso:view_aviso"},
		"format_options": {"filename:" + filename},
		"maxFeatures":    {"50"},
		"viewparams":     {"qry:" + viewparams},
		"outputFormat":   {"SHAPE-ZIP"},
	}
	return c.baseURL + "?" + params.Encode()
}

// archivePath is the cache location for one warning day, keyed by name only.
func (c *Client) archivePath(warningNumber string, day, year int) string {
	return filepath.Join(c.downloadDir, fmt.Sprintf("warning_%s_day_%d_%d.zip", warningNumber, day, year))
}

// Download fetches the archive for one warning day into the cache directory.
// A file already present under the expected name is returned as-is without
// touching the network. Responses that are not valid ZIP archives are
// discarded and reported as an error.
func (c *Client) Download(ctx context.Context, warningNumber string, day, year int) (Download, error) {
	fullURL := c.BuildShapefileURL(warningNumber, day, year)
	path := c.archivePath(warningNumber, day, year)

	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("shapefile already downloaded", "path", path)
		return Download{Path: path, URL: fullURL, Cached: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Download{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("download shapefile day %d: %w", day, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Download{}, fmt.Errorf("geoserver error: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.downloadDir, "download-*.zip")
	if err != nil {
		return Download{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("write shapefile day %d: %w", day, errFirst(copyErr, closeErr))
	}

	// The geoserver answers errors with an XML body and status 200; reject
	// anything that is not a readable ZIP before it enters the cache.
	if zr, err := zip.OpenReader(tmpPath); err != nil {
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("downloaded file is not a valid ZIP: %w", err)
	} else {
		zr.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("store shapefile: %w", err)
	}

	c.logger.Debug("shapefile downloaded", "warning", warningNumber, "day", day, "path", path)
	return Download{Path: path, URL: fullURL}, nil
}

// ListDownloaded returns the cached archive paths in name order.
func (c *Client) ListDownloaded() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(c.downloadDir, "warning_*.zip"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// CleanupOlderThan removes cached archives whose modification time is older
// than the cutoff and returns how many were removed.
func (c *Client) CleanupOlderThan(maxAge time.Duration) (int, error) {
	paths, err := c.ListDownloaded()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err != nil {
				c.logger.Warn("failed to remove old shapefile", "path", p, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

func errFirst(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
