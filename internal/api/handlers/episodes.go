package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
)

// EpisodesHandler exposes per-episode operations
type EpisodesHandler struct {
	downloads *controllers.DownloadController
	logger    *logrus.Logger
}

// NewEpisodesHandler creates a new episodes handler
func NewEpisodesHandler(downloads *controllers.DownloadController, logger *logrus.Logger) *EpisodesHandler {
	return &EpisodesHandler{downloads: downloads, logger: logger}
}

// RetryResponse reports which assets were reset for another download pass
type RetryResponse struct {
	EpisodeID uint64             `json:"episode_id"`
	Reset     []models.AssetKind `json:"reset"`
}

// Retry handles POST /api/episodes/{id}/retry
func (h *EpisodesHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid episode id")
		return
	}

	reset, err := h.downloads.RetryEpisode(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "episode not found")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"episode_id": id,
		"reset":      reset,
	}).Info("Episode assets reset for retry")
	writeJSON(w, http.StatusOK, RetryResponse{EpisodeID: id, Reset: reset})
}
