package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/profilezine/zinepress/app/media"
	"github.com/profilezine/zinepress/app/records"
	"github.com/profilezine/zinepress/app/runstore"
)

type fakeBuilder struct {
	calls int32
	err   error
	built chan struct{}
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{built: make(chan struct{}, 1)}
}

func (b *fakeBuilder) Run(ctx context.Context, runID string) error {
	atomic.AddInt32(&b.calls, 1)
	select {
	case b.built <- struct{}{}:
	default:
	}
	return b.err
}

func TestBuildBookTask_WaitsForDownloadDone(t *testing.T) {
	builder := newFakeBuilder()
	done := make(chan struct{})
	task := NewBuildBookTask(builder, "run-1", done, time.Minute)

	result := make(chan error, 1)
	go func() { result <- task.Execute(context.Background()) }()

	// The build does not start before the media stage settles.
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&builder.calls) != 0 {
		t.Fatal("Expected build to wait for download completion")
	}

	close(done)

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected build to run promptly after download completion")
	}
	if atomic.LoadInt32(&builder.calls) != 1 {
		t.Errorf("Expected exactly one build, got %d", builder.calls)
	}
}

func TestBuildBookTask_BuildsAtTimeoutWithoutDownload(t *testing.T) {
	builder := newFakeBuilder()
	done := make(chan struct{}) // never closed
	task := NewBuildBookTask(builder, "run-1", done, 50*time.Millisecond)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected degraded build, got: %v", err)
	}
	if atomic.LoadInt32(&builder.calls) != 1 {
		t.Errorf("Expected build despite missing download signal, got %d calls", builder.calls)
	}
}

func TestBuildBookTask_PropagatesBuilderError(t *testing.T) {
	builder := newFakeBuilder()
	builder.err = errors.New("render failed")
	done := make(chan struct{})
	close(done)

	task := NewBuildBookTask(builder, "run-1", done, time.Minute)
	if err := task.Execute(context.Background()); err == nil {
		t.Fatal("Expected builder error to propagate for retry")
	}
}

func TestBuildBookTask_BuildsWithinTaskDeadline(t *testing.T) {
	builder := newFakeBuilder()
	done := make(chan struct{}) // never closed

	// Wait timeout far beyond the execution deadline: the wait is
	// clamped so the build still fires inside the execution window.
	task := NewBuildBookTask(builder, "run-1", done, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := task.Execute(ctx); err != nil {
		t.Fatalf("Expected degraded build, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected build within the execution window, took %s", elapsed)
	}
	if atomic.LoadInt32(&builder.calls) != 1 {
		t.Errorf("Expected exactly one build, got %d", builder.calls)
	}
}

func TestBuildBookTask_CancelledContextStillBuilds(t *testing.T) {
	builder := newFakeBuilder()
	done := make(chan struct{}) // never closed
	task := NewBuildBookTask(builder, "run-1", done, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err != nil {
		t.Fatalf("Expected degraded build on cancellation, got: %v", err)
	}
	if atomic.LoadInt32(&builder.calls) != 1 {
		t.Errorf("Expected one build despite cancellation, got %d", builder.calls)
	}
}

func TestDownloadMediaTask_ClosesDoneOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	store := runstore.NewStore(t.TempDir())
	downloader := media.NewDownloader(server.Client(), media.Policy{Concurrency: 2, MaxRetries: 1})
	refs := []records.MediaRef{
		{Index: 1, URL: server.URL + "/a.jpg"},
		{Index: 2, URL: server.URL + "/b.jpg"},
	}

	task := NewDownloadMediaTask(downloader, store, "run-1", refs)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	select {
	case <-task.Done():
	default:
		t.Fatal("Expected done channel closed after successful execute")
	}

	entries, err := os.ReadDir(store.MediaDir("run-1"))
	if err != nil {
		t.Fatalf("Expected media directory, got: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 media files, got %d", len(entries))
	}
	if entries[0].Name() != "001.jpg" {
		t.Errorf("Expected 001.jpg first, got %s", entries[0].Name())
	}
}

func TestDownloadMediaTask_KeepsDoneOpenWhileRetryable(t *testing.T) {
	store := runstore.NewStore(filepath.Join(t.TempDir(), "data"))
	task := NewDownloadMediaTask(&failingDownloader{}, store, "run-1", []records.MediaRef{{Index: 1, URL: "http://x"}})

	// First failed execution: retries remain, so the build must keep
	// waiting.
	if err := task.Execute(context.Background()); err == nil {
		t.Fatal("Expected error from failing downloader")
	}
	select {
	case <-task.Done():
		t.Fatal("Expected done channel open while retries remain")
	default:
	}

	// Exhaust the retry budget; the final execution settles the stage.
	for task.CanRetry() {
		task.IncrementRetryCount()
	}
	if err := task.Execute(context.Background()); err == nil {
		t.Fatal("Expected error from failing downloader")
	}
	select {
	case <-task.Done():
	default:
		t.Fatal("Expected done channel closed once retries are exhausted")
	}
}

type failingDownloader struct{}

func (d *failingDownloader) Run(ctx context.Context, refs []records.MediaRef, destDir string) ([]media.Result, error) {
	return nil, errors.New("downloader unavailable")
}
