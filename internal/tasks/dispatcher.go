package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
)

// Dispatcher hands pipeline stages off for execution. Implementations differ
// in where the work runs: inline, in a goroutine, or on a Redis-backed queue.
type Dispatcher interface {
	DispatchDownload(ctx context.Context, courseID uint64) error
	DispatchSubtitles(ctx context.Context, courseID uint64) error
	DispatchTranslate(ctx context.Context, courseID uint64) error
}

// SyncDispatcher runs each stage inline on the caller's goroutine. Used by
// tests and one-shot CLI invocations.
type SyncDispatcher struct {
	Downloads *controllers.DownloadController
	Subtitles *controllers.SubtitleController
	Translate *controllers.TranslateController
}

func (d *SyncDispatcher) DispatchDownload(ctx context.Context, courseID uint64) error {
	return d.Downloads.ProcessCourse(ctx, courseID)
}

func (d *SyncDispatcher) DispatchSubtitles(ctx context.Context, courseID uint64) error {
	return d.Subtitles.ProcessCourse(courseID)
}

func (d *SyncDispatcher) DispatchTranslate(ctx context.Context, courseID uint64) error {
	return d.Translate.ProcessCourse(ctx, courseID)
}

// BackgroundDispatcher runs each stage on its own goroutine. Failures are
// logged, not returned: the HTTP handler has already answered by then.
type BackgroundDispatcher struct {
	Inner  *SyncDispatcher
	Logger *logrus.Logger
}

func (d *BackgroundDispatcher) dispatch(stage string, courseID uint64, run func(context.Context) error) error {
	go func() {
		if err := run(context.Background()); err != nil {
			d.Logger.WithError(err).WithFields(logrus.Fields{
				"stage":     stage,
				"course_id": courseID,
			}).Error("Background task failed")
		}
	}()
	return nil
}

func (d *BackgroundDispatcher) DispatchDownload(_ context.Context, courseID uint64) error {
	return d.dispatch("download", courseID, func(ctx context.Context) error {
		return d.Inner.DispatchDownload(ctx, courseID)
	})
}

func (d *BackgroundDispatcher) DispatchSubtitles(_ context.Context, courseID uint64) error {
	return d.dispatch("subtitles", courseID, func(ctx context.Context) error {
		return d.Inner.DispatchSubtitles(ctx, courseID)
	})
}

func (d *BackgroundDispatcher) DispatchTranslate(_ context.Context, courseID uint64) error {
	return d.dispatch("translate", courseID, func(ctx context.Context) error {
		return d.Inner.DispatchTranslate(ctx, courseID)
	})
}

// AsynqDispatcher enqueues stages onto the Redis-backed task queue for the
// worker binary to pick up.
type AsynqDispatcher struct {
	Client TaskEnqueuer
	Logger *logrus.Logger
}

func (d *AsynqDispatcher) enqueue(task *asynq.Task, err error) error {
	if err != nil {
		return fmt.Errorf("failed to build task: %w", err)
	}
	info, err := d.Client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	d.Logger.WithFields(logrus.Fields{
		"task_id": info.ID,
		"type":    task.Type(),
		"queue":   info.Queue,
	}).Info("Task enqueued")
	return nil
}

func (d *AsynqDispatcher) DispatchDownload(_ context.Context, courseID uint64) error {
	task, err := NewCourseDownloadTask(courseID)
	return d.enqueue(task, err)
}

func (d *AsynqDispatcher) DispatchSubtitles(_ context.Context, courseID uint64) error {
	task, err := NewCourseSubtitlesTask(courseID)
	return d.enqueue(task, err)
}

func (d *AsynqDispatcher) DispatchTranslate(_ context.Context, courseID uint64) error {
	task, err := NewCourseTranslateTask(courseID)
	return d.enqueue(task, err)
}
