package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
)

// CoursesHandler exposes course CRUD
type CoursesHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewCoursesHandler creates a new courses handler
func NewCoursesHandler(db *models.Database, logger *logrus.Logger) *CoursesHandler {
	return &CoursesHandler{db: db, logger: logger}
}

// CreateCourseRequest is the POST /api/courses body
type CreateCourseRequest struct {
	SourceURL  string `json:"source_url"`
	TitleEn    string `json:"title_en"`
	Instructor string `json:"instructor"`
	Category   string `json:"category"`
	Language   string `json:"language"`
	DebugMode  bool   `json:"debug_mode"`
}

// Create handles POST /api/courses
func (h *CoursesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "source_url is required")
		return
	}

	now := time.Now().UTC()
	course := &models.Course{
		SourceURL:  req.SourceURL,
		TitleEn:    req.TitleEn,
		Instructor: req.Instructor,
		Category:   req.Category,
		Language:   req.Language,
		Status:     models.CourseStatusScraped,
		DebugMode:  req.DebugMode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	controllers.EnsureCourseSlug(course)

	if err := h.db.CreateCourse(course); err != nil {
		h.logger.WithError(err).Error("Failed to create course")
		writeError(w, http.StatusInternalServerError, "failed to create course")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"course_id": course.ID,
		"slug":      course.Slug,
	}).Info("Course created")
	writeJSON(w, http.StatusCreated, course)
}

// List handles GET /api/courses
func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.db.GetAllCourses()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get courses")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// CourseResponse is a course together with its episodes
type CourseResponse struct {
	Course   *models.Course    `json:"course"`
	Episodes []*models.Episode `json:"episodes"`
}

// Get handles GET /api/courses/{id}
func (h *CoursesHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, CourseResponse{Course: course, Episodes: episodes})
}

// Delete handles DELETE /api/courses/{id}
func (h *CoursesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	if _, err := h.db.GetCourseByID(id); err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err := h.db.DeleteCourse(id); err != nil {
		h.logger.WithError(err).WithField("course_id", id).Error("Failed to delete course")
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}

	h.logger.WithField("course_id", id).Info("Course deleted")
	w.WriteHeader(http.StatusNoContent)
}
