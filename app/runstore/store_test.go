package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndReadRecords(t *testing.T) {
	store := NewStore(t.TempDir())

	payload := []byte(`[{"username":"alice"}]`)
	if err := store.SaveRecords("run-1", payload); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := store.ReadRecords("run-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Records not persisted verbatim: got %s", got)
	}
}

func TestValidateRunID(t *testing.T) {
	valid := []string{"run-1", "AbC123", "x_y.z"}
	for _, id := range valid {
		if err := ValidateRunID(id); err != nil {
			t.Errorf("Expected %q to be valid, got: %v", id, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "../etc"}
	for _, id := range invalid {
		if err := ValidateRunID(id); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("Expected %q to be rejected, got: %v", id, err)
		}
	}
}

func TestStatus_EmptyRun(t *testing.T) {
	store := NewStore(t.TempDir())

	status, err := store.Status("run-unknown")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if status.RecordsPersisted || status.MediaPresent || status.ArtifactPresent {
		t.Errorf("Expected all stages false for an unknown run, got %+v", status)
	}
}

func TestStatus_StageProgression(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.SaveRecords("run-1", []byte("[]")); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}
	status, _ := store.Status("run-1")
	if !status.RecordsPersisted {
		t.Error("Expected records stage to be complete")
	}
	if status.MediaPresent {
		t.Error("Media stage should not be complete yet")
	}

	// An empty media directory does not count as media present
	if err := os.MkdirAll(store.MediaDir("run-1"), 0o755); err != nil {
		t.Fatalf("Failed to create media dir: %v", err)
	}
	status, _ = store.Status("run-1")
	if status.MediaPresent {
		t.Error("Empty media directory should not count as present")
	}

	if err := os.WriteFile(filepath.Join(store.MediaDir("run-1"), "001.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatalf("Failed to write media file: %v", err)
	}
	status, _ = store.Status("run-1")
	if !status.MediaPresent {
		t.Error("Expected media stage to be complete")
	}

	if err := store.SaveArtifact("run-1", []byte("<html></html>")); err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}
	status, _ = store.Status("run-1")
	if !status.ArtifactPresent {
		t.Error("Expected artifact stage to be complete")
	}
}

func TestStatus_Idempotent(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.SaveRecords("run-1", []byte("[]")); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}

	first, err := store.Status("run-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := store.Status("run-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first != second {
		t.Errorf("Status is not idempotent: %+v vs %+v", first, second)
	}
}

func TestMediaFiles(t *testing.T) {
	store := NewStore(t.TempDir())

	files, err := store.MediaFiles("run-1")
	if err != nil {
		t.Fatalf("Missing media dir should not error, got: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no files, got %d", len(files))
	}

	if err := os.MkdirAll(store.MediaDir("run-1"), 0o755); err != nil {
		t.Fatalf("Failed to create media dir: %v", err)
	}
	for _, name := range []string{"002.png", "001.jpg"} {
		if err := os.WriteFile(filepath.Join(store.MediaDir("run-1"), name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	files, err = store.MediaFiles("run-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(files) != 2 || files[0] != "001.jpg" || files[1] != "002.png" {
		t.Errorf("Expected lexically ordered [001.jpg 002.png], got %v", files)
	}
}

func TestRunPartitioning(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.SaveRecords("run-a", []byte(`["a"]`)); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}
	if err := store.SaveRecords("run-b", []byte(`["b"]`)); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}

	a, _ := store.ReadRecords("run-a")
	b, _ := store.ReadRecords("run-b")
	if string(a) == string(b) {
		t.Error("Runs must not share record files")
	}
}
