package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/tasks"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron                   *cron.Cron
	downloadCtrl           *controllers.DownloadController
	dispatcher             tasks.Dispatcher
	db                     *models.Database
	logger                 *logrus.Logger
	downloadTimeoutMinutes int
}

// NewScheduler creates a new scheduler
func NewScheduler(
	downloadCtrl *controllers.DownloadController,
	dispatcher tasks.Dispatcher,
	db *models.Database,
	downloadTimeoutMinutes int,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:                   cron.New(),
		downloadCtrl:           downloadCtrl,
		dispatcher:             dispatcher,
		db:                     db,
		downloadTimeoutMinutes: downloadTimeoutMinutes,
		logger:                 logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 10 minutes: reset downloads stuck mid-transfer
	_, err := s.cron.AddFunc("*/10 * * * *", func() {
		s.runStaleDownloadSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add stale download sweep job: %w", err)
	}

	// Every 30 minutes: advance courses whose downloads finished
	_, err = s.cron.AddFunc("*/30 * * * *", func() {
		s.runSubtitleSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add subtitle sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runStaleDownloadSweep executes the stale download sweep job
func (s *Scheduler) runStaleDownloadSweep() {
	s.logger.Debug("Running stale download sweep")

	timeout := time.Duration(s.downloadTimeoutMinutes) * time.Minute
	if _, err := s.downloadCtrl.SweepStaleDownloads(timeout); err != nil {
		s.logger.WithError(err).Error("Stale download sweep failed")
	}
}

// runSubtitleSweep dispatches subtitle processing for courses that finished
// their download pass but still have unprocessed subtitles.
func (s *Scheduler) runSubtitleSweep() {
	courses, err := s.db.GetAllCourses()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list courses")
		return
	}

	ctx := context.Background()
	for _, course := range courses {
		if course.Status != models.CourseStatusProcessing {
			continue
		}
		episodes, err := s.db.GetEpisodesByCourse(course.ID)
		if err != nil {
			s.logger.WithError(err).WithField("course_id", course.ID).Error("Failed to load episodes")
			continue
		}
		pending := 0
		for _, episode := range episodes {
			if episode.SubtitleStatus == models.AssetStatusDownloaded {
				pending++
			}
		}
		if pending == 0 {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"course_id": course.ID,
			"pending":   pending,
		}).Info("Dispatching subtitle processing")
		if err := s.dispatcher.DispatchSubtitles(ctx, course.ID); err != nil {
			s.logger.WithError(err).WithField("course_id", course.ID).Error("Failed to dispatch subtitle processing")
		}
	}
}
