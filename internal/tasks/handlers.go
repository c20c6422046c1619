package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/acmsdev/acms/internal/controllers"
)

// Handler binds queue task types to controller calls for the worker binary.
type Handler struct {
	Downloads *controllers.DownloadController
	Subtitles *controllers.SubtitleController
	Translate *controllers.TranslateController
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCourseDownload, h.HandleCourseDownload)
	mux.HandleFunc(TypeCourseSubtitles, h.HandleCourseSubtitles)
	mux.HandleFunc(TypeCourseTranslate, h.HandleCourseTranslate)
}

func decodePayload(t *asynq.Task) (CoursePayload, error) {
	var p CoursePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return p, nil
}

func (h *Handler) HandleCourseDownload(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	return h.Downloads.ProcessCourse(ctx, p.CourseID)
}

func (h *Handler) HandleCourseSubtitles(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	return h.Subtitles.ProcessCourse(p.CourseID)
}

func (h *Handler) HandleCourseTranslate(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	return h.Translate.ProcessCourse(ctx, p.CourseID)
}
