package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/tasks"
)

// PipelineHandler triggers pipeline stages and reports progress
type PipelineHandler struct {
	db         *models.Database
	dispatcher tasks.Dispatcher
	logger     *logrus.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(db *models.Database, dispatcher tasks.Dispatcher, logger *logrus.Logger) *PipelineHandler {
	return &PipelineHandler{db: db, dispatcher: dispatcher, logger: logger}
}

func (h *PipelineHandler) dispatch(w http.ResponseWriter, r *http.Request, stage string,
	run func(r *http.Request, courseID uint64) error) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}
	if _, err := h.db.GetCourseByID(id); err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	if err := run(r, id); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"course_id": id,
			"stage":     stage,
		}).Error("Failed to dispatch pipeline stage")
		writeError(w, http.StatusInternalServerError, "failed to dispatch "+stage)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"course_id":  id,
		"stage":      stage,
		"dispatched": true,
	})
}

// Download handles POST /api/courses/{id}/download
func (h *PipelineHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "download", func(r *http.Request, id uint64) error {
		return h.dispatcher.DispatchDownload(r.Context(), id)
	})
}

// Subtitles handles POST /api/courses/{id}/subtitles
func (h *PipelineHandler) Subtitles(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "subtitles", func(r *http.Request, id uint64) error {
		return h.dispatcher.DispatchSubtitles(r.Context(), id)
	})
}

// Translate handles POST /api/courses/{id}/translate
func (h *PipelineHandler) Translate(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "translate", func(r *http.Request, id uint64) error {
		return h.dispatcher.DispatchTranslate(r.Context(), id)
	})
}

// Progress handles GET /api/courses/{id}/progress
func (h *PipelineHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	course, err := h.db.GetCourseByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	episodes, err := h.db.GetEpisodesByCourse(id)
	if err != nil {
		h.logger.WithError(err).WithField("course_id", id).Error("Failed to get episodes")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, controllers.CourseProgress(course, episodes))
}
