package tasks

import (
	"context"
	"log/slog"
	"time"
)

// buildReserve is the slice of the task deadline kept for the build
// itself when clamping the media wait.
const buildReserve = 30 * time.Second

// BuildBookTask waits for the media stage to settle, then builds the
// run's artifact. The wait is bounded twice over: past waitTimeout the
// book is built from whatever media made it to disk, and the wait is
// clamped to the task deadline so the build always fires inside the
// execution window. A stuck download can never hold the artifact
// hostage.
type BuildBookTask struct {
	Task
	builder      BookBuilder
	downloadDone <-chan struct{}
	waitTimeout  time.Duration
}

func NewBuildBookTask(builder BookBuilder, runID string, downloadDone <-chan struct{}, waitTimeout time.Duration) *BuildBookTask {
	if waitTimeout <= 0 {
		waitTimeout = 20 * time.Minute
	}
	return &BuildBookTask{
		Task:         NewTask(TaskTypeBuildBook, runID),
		builder:      builder,
		downloadDone: downloadDone,
		waitTimeout:  waitTimeout,
	}
}

func (t *BuildBookTask) Execute(ctx context.Context) error {
	wait := t.waitTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline) - buildReserve; remaining < wait {
			wait = remaining
		}
		if wait < 0 {
			wait = 0
		}
	}

	select {
	case <-t.downloadDone:
	case <-time.After(wait):
		slog.Warn("Media stage did not settle in time, building anyway",
			"run", t.GetRunID(), "waited", wait.String())
	case <-ctx.Done():
		slog.Warn("Task deadline reached before media settled, building anyway",
			"run", t.GetRunID(), "error", ctx.Err())
	}

	return t.builder.Run(ctx, t.GetRunID())
}
