package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profilezine/zinepress/app/apify"
	"github.com/profilezine/zinepress/app/records"
	"github.com/profilezine/zinepress/app/runstore"
	"github.com/profilezine/zinepress/app/tasks"
)

// ErrMissingRunID rejects trigger payloads that do not identify a run.
// Nothing is persisted for such requests.
var ErrMissingRunID = errors.New("ingest: missing run ID")

// DatasetAPI is the slice of the Apify client the pipeline consumes.
type DatasetAPI interface {
	GetRun(ctx context.Context, runID string) (*apify.Run, error)
	FetchItems(ctx context.Context, datasetID string, maxAttempts int, baseDelay time.Duration) ([]byte, error)
}

// Options bound the dataset fetch and the artifact build wait. Zero
// values fall back to defaults suitable for production.
type Options struct {
	DatasetMaxAttempts int
	DatasetRetryDelay  time.Duration
	BuildWaitTimeout   time.Duration
}

// Pipeline turns a finished actor run into persisted records plus two
// queued background stages: media download and book build. The build
// stage is chained to the download stage through a completion channel,
// so it starts as soon as media settles and no later than the wait
// timeout.
type Pipeline struct {
	api        DatasetAPI
	store      *runstore.Store
	downloader tasks.MediaDownloader
	builder    tasks.BookBuilder
	scheduler  tasks.TaskSchedulerInterface
	opts       Options
}

func NewPipeline(api DatasetAPI, store *runstore.Store, downloader tasks.MediaDownloader,
	builder tasks.BookBuilder, scheduler tasks.TaskSchedulerInterface, opts Options) *Pipeline {
	if opts.DatasetMaxAttempts <= 0 {
		opts.DatasetMaxAttempts = 10
	}
	if opts.DatasetRetryDelay <= 0 {
		opts.DatasetRetryDelay = 2 * time.Second
	}
	if opts.BuildWaitTimeout <= 0 {
		opts.BuildWaitTimeout = 20 * time.Minute
	}
	return &Pipeline{
		api:        api,
		store:      store,
		downloader: downloader,
		builder:    builder,
		scheduler:  scheduler,
		opts:       opts,
	}
}

// Process ingests one run. The dataset ID may be empty, in which case
// it is resolved from the run handle. Records are persisted verbatim
// before any media work is queued, so a crash mid-pipeline never loses
// the fetched dataset.
func (p *Pipeline) Process(ctx context.Context, runID string, datasetID string) error {
	if runID == "" {
		return ErrMissingRunID
	}
	if err := runstore.ValidateRunID(runID); err != nil {
		return err
	}

	if datasetID == "" {
		run, err := p.api.GetRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("ingest: resolve run %s: %w", runID, err)
		}
		datasetID = run.DefaultDatasetID
		slog.Debug("Resolved dataset from run handle", "run", runID, "dataset", datasetID, "status", run.Status)
	}

	items, err := p.api.FetchItems(ctx, datasetID, p.opts.DatasetMaxAttempts, p.opts.DatasetRetryDelay)
	if err != nil {
		return fmt.Errorf("ingest: fetch dataset %s: %w", datasetID, err)
	}

	if err := p.store.SaveRecords(runID, items); err != nil {
		return err
	}

	profiles, err := records.Decode(items)
	if err != nil {
		slog.Warn("Records not decodable, continuing without media", "run", runID, "error", err)
	}
	refs := records.ExtractMediaRefs(profiles)

	downloadTask := tasks.NewDownloadMediaTask(p.downloader, p.store, runID, refs)
	buildTask := tasks.NewBuildBookTask(p.builder, runID, downloadTask.Done(), p.opts.BuildWaitTimeout)

	if err := p.scheduler.EnqueueTask(downloadTask); err != nil {
		return fmt.Errorf("ingest: enqueue media download: %w", err)
	}
	if err := p.scheduler.EnqueueTask(buildTask); err != nil {
		return fmt.Errorf("ingest: enqueue book build: %w", err)
	}

	slog.Info("Run ingested", "run", runID, "dataset", datasetID,
		"records_bytes", len(items), "media_refs", len(refs))
	return nil
}
