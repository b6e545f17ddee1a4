package database

import (
	"time"
)

// ScrapeRequest records who asked for which profile scrape. This is
// request metadata only: pipeline stage progress is derived from the
// run's files on disk and is deliberately never written here.
type ScrapeRequest struct {
	ID         string // Database UUID
	RunID      string // Actor run ID assigned by the scraping platform
	ProfileURL string
	Preset     string
	CreatedAt  time.Time
}
