package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/models"
)

// StatusHandler reports pipeline-wide counters
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{db: db, logger: logger}
}

// StatusResponse summarizes every course and asset in the system
type StatusResponse struct {
	TotalCourses    int            `json:"total_courses"`
	TotalEpisodes   int            `json:"total_episodes"`
	CoursesByStatus map[string]int `json:"courses_by_status"`
	VideosByStatus  map[string]int `json:"videos_by_status"`
	SubsByStatus    map[string]int `json:"subtitles_by_status"`
	ExpiredCourses  int            `json:"expired_courses"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	courses, err := h.db.GetAllCourses()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get courses")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := StatusResponse{
		TotalCourses:    len(courses),
		CoursesByStatus: make(map[string]int),
		VideosByStatus:  make(map[string]int),
		SubsByStatus:    make(map[string]int),
	}

	for _, course := range courses {
		response.CoursesByStatus[string(course.Status)]++
		if course.LinksExpired {
			response.ExpiredCourses++
		}

		episodes, err := h.db.GetEpisodesByCourse(course.ID)
		if err != nil {
			h.logger.WithError(err).WithField("course_id", course.ID).Error("Failed to get episodes")
			continue
		}
		response.TotalEpisodes += len(episodes)
		for _, episode := range episodes {
			response.VideosByStatus[string(episode.VideoStatus)]++
			response.SubsByStatus[string(episode.SubtitleStatus)]++
		}
	}

	writeJSON(w, http.StatusOK, response)
}
