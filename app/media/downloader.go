package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/profilezine/zinepress/app/records"
)

type Status string

const (
	StatusFetched     Status = "fetched"
	StatusPlaceholder Status = "placeholder"
)

// Result describes the on-disk outcome for one media reference. Every
// reference produces exactly one result; unrecoverable references are
// materialized as placeholders instead of being dropped.
type Result struct {
	Index  int
	URL    string
	Path   string
	Status Status
}

// Policy holds the download limits. All values are configuration, not
// invariants; tests set their own.
type Policy struct {
	Concurrency    int
	MaxItems       int
	MaxRetries     int
	RequestTimeout time.Duration
	RetryDelay     time.Duration
	UserAgent      string
}

// Downloader materializes media references as files under a run's
// media directory, bounding in-flight requests with a semaphore.
type Downloader struct {
	httpClient *http.Client
	policy     Policy
}

func NewDownloader(httpClient *http.Client, policy Policy) *Downloader {
	if policy.Concurrency <= 0 {
		policy.Concurrency = 3
	}
	if policy.RequestTimeout <= 0 {
		policy.RequestTimeout = 30 * time.Second
	}
	if policy.RetryDelay <= 0 {
		policy.RetryDelay = time.Second
	}
	return &Downloader{
		httpClient: httpClient,
		policy:     policy,
	}
}

// Run downloads all references into destDir. Failure of one reference
// never cancels its siblings: each slot either holds the fetched bytes
// or a placeholder. The returned error covers setup problems only
// (e.g. the destination directory cannot be created).
func (d *Downloader) Run(ctx context.Context, refs []records.MediaRef, destDir string) ([]Result, error) {
	if d.policy.MaxItems > 0 && len(refs) > d.policy.MaxItems {
		slog.Info("Truncating media batch", "total", len(refs), "cap", d.policy.MaxItems)
		refs = refs[:d.policy.MaxItems]
	}
	if len(refs) == 0 {
		slog.Warn("No media references to download", "dir", destDir)
		return nil, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create directory: %w", err)
	}

	results := make([]Result, len(refs))
	sem := make(chan struct{}, d.policy.Concurrency)
	var wg sync.WaitGroup

	for i, ref := range refs {
		wg.Add(1)
		go func(slot int, ref records.MediaRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[slot] = d.fetchOne(ctx, ref, destDir)
		}(i, ref)
	}
	wg.Wait()

	fetched := 0
	for _, result := range results {
		if result.Status == StatusFetched {
			fetched++
		}
	}
	slog.Info("Media download finished",
		"dir", destDir, "total", len(results), "fetched", fetched,
		"placeholders", len(results)-fetched)

	return results, nil
}

func (d *Downloader) fetchOne(ctx context.Context, ref records.MediaRef, destDir string) Result {
	for attempt := 0; ; attempt++ {
		path, retryable, err := d.tryFetch(ctx, ref, destDir)
		if err == nil {
			return Result{Index: ref.Index, URL: ref.URL, Path: path, Status: StatusFetched}
		}

		if !retryable || attempt >= d.policy.MaxRetries {
			slog.Warn("Media item unrecoverable, writing placeholder",
				"url", ref.URL, "index", ref.Index, "attempts", attempt+1, "error", err)
			break
		}

		// 2^attempt backoff before the next try
		delay := d.policy.RetryDelay * time.Duration(1<<uint(attempt))
		slog.Debug("Retrying media item",
			"url", ref.URL, "attempt", attempt+1, "delay", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return d.placeholderResult(ref, destDir)
		case <-time.After(delay):
		}
	}

	return d.placeholderResult(ref, destDir)
}

// tryFetch performs one GET for the reference. The boolean reports
// whether the failure class is worth retrying (network errors,
// timeouts, throttling and server-side errors are; everything else is
// not).
func (d *Downloader) tryFetch(ctx context.Context, ref records.MediaRef, destDir string) (string, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.policy.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return "", false, fmt.Errorf("media: create request: %w", err)
	}
	if d.policy.UserAgent != "" {
		req.Header.Set("User-Agent", d.policy.UserAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("media: fetch %s: %w", ref.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("media: fetch %s: HTTP %d", ref.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("media: read %s: %w", ref.URL, err)
	}

	ext := extensionForContentType(resp.Header.Get("Content-Type"))
	path := filepath.Join(destDir, assetName(ref.Index, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("media: write %s: %w", path, err)
	}

	slog.Debug("Saved media item", "path", path, "bytes", len(data))
	return path, false, nil
}

func (d *Downloader) placeholderResult(ref records.MediaRef, destDir string) Result {
	path := filepath.Join(destDir, assetName(ref.Index, ".png"))
	if err := writePlaceholder(path); err != nil {
		slog.Error("Failed to write placeholder", "path", path, "error", err)
	}
	return Result{Index: ref.Index, URL: ref.URL, Path: path, Status: StatusPlaceholder}
}

func assetName(index int, ext string) string {
	return fmt.Sprintf("%03d%s", index, ext)
}

var contentTypeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".jpg"
	}
	if ext, ok := contentTypeExtensions[mediaType]; ok {
		return ext
	}
	return ".jpg"
}
