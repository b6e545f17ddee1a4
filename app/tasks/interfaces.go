package tasks

import "context"

// TaskSchedulerInterface defines the interface for task scheduling
// operations. The webhook pipeline enqueues background work here; the
// scheduler's worker pool keeps blocking work (downloads, builds) off
// the request handlers.
// Example usage:
//
//	scheduler := NewScheduler(workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewDownloadMediaTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// BookBuilder is the build step consumed by BuildBookTask. The builder
// must tolerate runs with zero media files and empty records.
type BookBuilder interface {
	Run(ctx context.Context, runID string) error
}
