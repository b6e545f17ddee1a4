package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	recordsFile  = "records.json"
	mediaDirName = "media"
	artifactFile = "book.html"
)

// ErrInvalidRunID rejects run identifiers that could escape the data
// directory.
var ErrInvalidRunID = errors.New("runstore: invalid run ID")

// Store owns the per-run filesystem layout:
//
//	<root>/<run_id>/records.json
//	<root>/<run_id>/media/{index}{ext}
//	<root>/<run_id>/book.html
//
// Runs are partitioned by ID, so concurrent runs never share files.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// ValidateRunID rejects IDs that are empty or contain path elements.
// Run IDs name directories, so this is a caller-error boundary.
func ValidateRunID(runID string) error {
	if runID == "" {
		return ErrInvalidRunID
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return ErrInvalidRunID
	}
	return nil
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *Store) RecordsPath(runID string) string {
	return filepath.Join(s.RunDir(runID), recordsFile)
}

func (s *Store) MediaDir(runID string) string {
	return filepath.Join(s.RunDir(runID), mediaDirName)
}

func (s *Store) ArtifactPath(runID string) string {
	return filepath.Join(s.RunDir(runID), artifactFile)
}

// SaveRecords persists the dataset items verbatim. The record file is
// written once per run; there are no concurrent writers.
func (s *Store) SaveRecords(runID string, data []byte) error {
	if err := ValidateRunID(runID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.RunDir(runID), 0o755); err != nil {
		return fmt.Errorf("runstore: create run directory: %w", err)
	}
	if err := os.WriteFile(s.RecordsPath(runID), data, 0o644); err != nil {
		return fmt.Errorf("runstore: write records: %w", err)
	}
	return nil
}

func (s *Store) ReadRecords(runID string) ([]byte, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.RecordsPath(runID))
	if err != nil {
		return nil, fmt.Errorf("runstore: read records: %w", err)
	}
	return data, nil
}

// SaveArtifact writes the built book for the run.
func (s *Store) SaveArtifact(runID string, data []byte) error {
	if err := ValidateRunID(runID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.RunDir(runID), 0o755); err != nil {
		return fmt.Errorf("runstore: create run directory: %w", err)
	}
	if err := os.WriteFile(s.ArtifactPath(runID), data, 0o644); err != nil {
		return fmt.Errorf("runstore: write artifact: %w", err)
	}
	return nil
}

// MediaFiles lists downloaded asset file names in lexical order, which
// matches download sequence because names are zero-padded indexes.
func (s *Store) MediaFiles(runID string) ([]string, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.MediaDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("runstore: read media directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
