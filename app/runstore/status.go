package runstore

import "os"

// Status is the derived snapshot of a run's progress. It is computed
// from file presence on every call and never stored, so it cannot
// drift from what is actually on disk.
type Status struct {
	RunID            string
	RecordsPersisted bool
	MediaPresent     bool
	ArtifactPresent  bool
}

// Status reports stage completion for a run. It only reads filesystem
// metadata, so it is safe to call concurrently with pipeline writes.
func (s *Store) Status(runID string) (Status, error) {
	if err := ValidateRunID(runID); err != nil {
		return Status{}, err
	}

	status := Status{RunID: runID}

	if _, err := os.Stat(s.RecordsPath(runID)); err == nil {
		status.RecordsPersisted = true
	}

	if entries, err := os.ReadDir(s.MediaDir(runID)); err == nil && len(entries) > 0 {
		status.MediaPresent = true
	}

	if _, err := os.Stat(s.ArtifactPath(runID)); err == nil {
		status.ArtifactPresent = true
	}

	return status, nil
}
