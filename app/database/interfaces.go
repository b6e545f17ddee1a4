package database

type RunRepository interface {
	CreateScrapeRequest(request ScrapeRequest) error
	GetScrapeRequestByRunID(runID string) (*ScrapeRequest, error)
	ListScrapeRequests(limit int) ([]ScrapeRequest, error)
	GetScrapeRequestCount() (int, error)
}
