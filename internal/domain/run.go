package domain

import "time"

// RunStatus is the lifecycle of one scheduled ingestion attempt. A run is
// created as running and moved exactly once to a terminal status.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// ScrapeRun is the audit record of one ingestion attempt. Failed scheduled
// runs are visible only through this trail; there is no alerting beyond it.
type ScrapeRun struct {
	ID               int64
	StartedAt        time.Time
	FinishedAt       *time.Time
	Status           RunStatus
	LocationsScraped int
	ForecastsSaved   int
	ErrorMessage     string
	Departments      []string
}
