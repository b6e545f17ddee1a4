package tasks

import (
	"context"
	"sync"

	"github.com/profilezine/zinepress/app/media"
	"github.com/profilezine/zinepress/app/records"
	"github.com/profilezine/zinepress/app/runstore"
)

// MediaDownloader is the download step consumed by DownloadMediaTask.
type MediaDownloader interface {
	Run(ctx context.Context, refs []records.MediaRef, destDir string) ([]media.Result, error)
}

// DownloadMediaTask materializes a run's media references on disk.
// Done() is closed when Execute finishes, successfully or not, so the
// build task can start as soon as the media stage has settled instead
// of polling the filesystem.
type DownloadMediaTask struct {
	Task
	downloader MediaDownloader
	store      *runstore.Store
	refs       []records.MediaRef
	done       chan struct{}
	closeOnce  sync.Once
}

func NewDownloadMediaTask(downloader MediaDownloader, store *runstore.Store, runID string, refs []records.MediaRef) *DownloadMediaTask {
	return &DownloadMediaTask{
		Task:       NewTask(TaskTypeDownloadMedia, runID),
		downloader: downloader,
		store:      store,
		refs:       refs,
		done:       make(chan struct{}),
	}
}

// Done reports completion of the media stage. It fires exactly once,
// even across scheduler retries.
func (t *DownloadMediaTask) Done() <-chan struct{} {
	return t.done
}

func (t *DownloadMediaTask) Execute(ctx context.Context) error {
	_, err := t.downloader.Run(ctx, t.refs, t.store.MediaDir(t.GetRunID()))
	if err == nil || !t.CanRetry() {
		t.closeOnce.Do(func() { close(t.done) })
	}
	return err
}
