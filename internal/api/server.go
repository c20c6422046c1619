package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/api/handlers"
	"github.com/acmsdev/acms/internal/api/middleware"
	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/downloader"
	"github.com/acmsdev/acms/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	server     *http.Server
	db         *models.Database
	links      *controllers.LinksController
	downloads  *controllers.DownloadController
	engine     *downloader.Engine
	dispatcher tasks.Dispatcher
	logger     *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, links *controllers.LinksController,
	downloads *controllers.DownloadController, engine *downloader.Engine,
	dispatcher tasks.Dispatcher, logger *logrus.Logger) *Server {
	s := &Server{
		db:         db,
		links:      links,
		downloads:  downloads,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("GET /health", healthHandler.ServeHTTP)

	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.HandleFunc("GET /status", statusHandler.ServeHTTP)

	coursesHandler := handlers.NewCoursesHandler(s.db, s.logger)
	mux.HandleFunc("POST /api/courses", coursesHandler.Create)
	mux.HandleFunc("GET /api/courses", coursesHandler.List)
	mux.HandleFunc("GET /api/courses/{id}", coursesHandler.Get)
	mux.HandleFunc("DELETE /api/courses/{id}", coursesHandler.Delete)

	episodesHandler := handlers.NewEpisodesHandler(s.downloads, s.logger)
	mux.HandleFunc("POST /api/episodes/{id}/retry", episodesHandler.Retry)

	linksHandler := handlers.NewLinksHandler(s.links, s.engine, s.logger)
	mux.HandleFunc("POST /api/courses/{id}/links", linksHandler.Apply)
	mux.HandleFunc("GET /api/courses/{id}/links", linksHandler.List)
	mux.HandleFunc("POST /api/links/validate", linksHandler.Validate)

	pipelineHandler := handlers.NewPipelineHandler(s.db, s.dispatcher, s.logger)
	mux.HandleFunc("POST /api/courses/{id}/download", pipelineHandler.Download)
	mux.HandleFunc("POST /api/courses/{id}/subtitles", pipelineHandler.Subtitles)
	mux.HandleFunc("POST /api/courses/{id}/translate", pipelineHandler.Translate)
	mux.HandleFunc("GET /api/courses/{id}/progress", pipelineHandler.Progress)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
