package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeCourseDownload  = "course:download"
	TypeCourseSubtitles = "course:subtitles"
	TypeCourseTranslate = "course:translate"
)

// CoursePayload identifies the course a pipeline task operates on.
type CoursePayload struct {
	CourseID uint64
}

func NewCourseDownloadTask(courseID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(CoursePayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCourseDownload, payload), nil
}

func NewCourseSubtitlesTask(courseID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(CoursePayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCourseSubtitles, payload), nil
}

func NewCourseTranslateTask(courseID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(CoursePayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCourseTranslate, payload), nil
}

// TaskEnqueuer is the slice of asynq.Client the dispatcher needs.
// Mockable in tests.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
