package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/services/downloader"
)

// validationCacheTTL bounds how long a reachability verdict is reused, so a
// link that expires server-side is re-checked within a few minutes.
const validationCacheTTL = 5 * time.Minute

// LinksHandler exposes link batch application and validation
type LinksHandler struct {
	links      *controllers.LinksController
	engine     *downloader.Engine
	validation *cache.Cache
	logger     *logrus.Logger
}

// NewLinksHandler creates a new links handler
func NewLinksHandler(links *controllers.LinksController, engine *downloader.Engine, logger *logrus.Logger) *LinksHandler {
	return &LinksHandler{
		links:      links,
		engine:     engine,
		validation: cache.New(validationCacheTTL, 10*time.Minute),
		logger:     logger,
	}
}

// ApplyRequest is the POST /api/courses/{id}/links body
type ApplyRequest struct {
	Links  string `json:"links"`
	DryRun bool   `json:"dry_run"`
}

// Apply handles POST /api/courses/{id}/links
func (h *LinksHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Links == "" {
		writeError(w, http.StatusBadRequest, "links is required")
		return
	}

	result, err := h.links.ApplyBatch(id, req.Links, !req.DryRun)
	if err != nil {
		h.logger.WithError(err).WithField("course_id", id).Error("Failed to apply link batch")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/courses/{id}/links
func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	batches, err := h.links.Batches(id)
	if err != nil {
		h.logger.WithError(err).WithField("course_id", id).Error("Failed to get link batches")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// ValidateRequest is the POST /api/links/validate body
type ValidateRequest struct {
	URL string `json:"url"`
}

// ValidateResponse reports whether a link is still fetchable
type ValidateResponse struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Size      int64  `json:"size,omitempty"`
	Error     string `json:"error,omitempty"`
	Cached    bool   `json:"cached"`
}

// Validate handles POST /api/links/validate. Verdicts are memoized for a few
// minutes so bulk re-validation does not hammer the source host.
func (h *LinksHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if cached, found := h.validation.Get(req.URL); found {
		response := cached.(ValidateResponse)
		response.Cached = true
		writeJSON(w, http.StatusOK, response)
		return
	}

	response := ValidateResponse{URL: req.URL}
	size, err := h.engine.RemoteSize(r.Context(), req.URL)
	if err != nil {
		response.Error = err.Error()
		if downloader.IsExpiredLinkError(err, req.URL) {
			response.Error = downloader.ExpiredLinkUserMessage
		}
	} else {
		response.Reachable = true
		response.Size = size
	}

	h.validation.SetDefault(req.URL, response)
	writeJSON(w, http.StatusOK, response)
}
