package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ RunRepository = (*SQLRunRepository)(nil)

// SQLRunRepository handles database operations for scrape requests
type SQLRunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

func (r *SQLRunRepository) CreateScrapeRequest(request ScrapeRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO scrape_requests (id, run_id, profile_url, preset, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, request.ID, request.RunID, request.ProfileURL, request.Preset, request.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create scrape request: %w", err)
	}

	return nil
}

func (r *SQLRunRepository) GetScrapeRequestByRunID(runID string) (*ScrapeRequest, error) {
	var request ScrapeRequest

	err := r.db.QueryRow(`
		SELECT id, run_id, profile_url, preset, created_at
		FROM scrape_requests
		WHERE run_id = ?
	`, runID).Scan(&request.ID, &request.RunID, &request.ProfileURL, &request.Preset, &request.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape request: %w", err)
	}

	return &request, nil
}

func (r *SQLRunRepository) ListScrapeRequests(limit int) ([]ScrapeRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(`
		SELECT id, run_id, profile_url, preset, created_at
		FROM scrape_requests
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape requests: %w", err)
	}
	defer rows.Close()

	var requests []ScrapeRequest
	for rows.Next() {
		var request ScrapeRequest
		if err := rows.Scan(&request.ID, &request.RunID, &request.ProfileURL, &request.Preset, &request.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrape request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scrape requests: %w", err)
	}

	return requests, nil
}

func (r *SQLRunRepository) GetScrapeRequestCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scrape_requests`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scrape requests: %w", err)
	}
	return count, nil
}
