package controllers

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/processor"
	"github.com/acmsdev/acms/internal/utils"
)

// SubtitleController runs downloaded subtitles through the cleaning pipeline
// and writes the processed WebVTT files.
type SubtitleController struct {
	db        *models.Database
	processor *processor.Processor
	cfg       *config.Config
	logger    *logrus.Logger
}

// NewSubtitleController creates a new subtitle controller
func NewSubtitleController(db *models.Database, proc *processor.Processor, cfg *config.Config, logger *logrus.Logger) *SubtitleController {
	return &SubtitleController{db: db, processor: proc, cfg: cfg, logger: logger}
}

// ProcessCourse processes every downloaded subtitle of the course. Episode
// failures are isolated. The course advances to ready_for_upload when at
// least one subtitle came out clean.
func (c *SubtitleController) ProcessCourse(courseID uint64) error {
	course, err := c.db.GetCourseByID(courseID)
	if err != nil {
		return fmt.Errorf("course not found: %w", err)
	}

	episodes, err := c.db.GetEpisodesByCourse(courseID)
	if err != nil {
		return fmt.Errorf("failed to load episodes: %w", err)
	}

	processedDir := filepath.Join(c.cfg.StoragePath, "courses", course.Slug, "subtitles", "processed")

	processed := 0
	failed := 0
	for _, episode := range episodes {
		if episode.SubtitleStatus != models.AssetStatusDownloaded {
			continue
		}
		if c.processEpisode(episode, processedDir) {
			processed++
		} else {
			failed++
		}
	}

	if processed > 0 {
		course.Status = models.CourseStatusReadyForUpload
		course.UpdatedAt = time.Now().UTC()
		if err := c.db.UpdateCourse(course); err != nil {
			return fmt.Errorf("failed to update course status: %w", err)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"course_id": courseID,
		"processed": processed,
		"failed":    failed,
	}).Info("Subtitle pass finished")
	return nil
}

func (c *SubtitleController) processEpisode(episode *models.Episode, processedDir string) bool {
	episode.SubtitleStatus = models.AssetStatusProcessing
	episode.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateEpisode(episode); err != nil {
		c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Failed to mark subtitle processing")
		return false
	}

	stem, _ := utils.SplitExtension(filepath.Base(episode.SubtitleLocalPath))
	destination := filepath.Join(processedDir, stem+".vtt")

	result, err := c.processor.Process(episode.SubtitleLocalPath, destination)
	if err != nil {
		episode.SubtitleStatus = models.AssetStatusError
		episode.ErrorMessage = fmt.Sprintf("subtitle processing failed: %v", err)
		episode.UpdatedAt = time.Now().UTC()
		if dbErr := c.db.UpdateEpisode(episode); dbErr != nil {
			c.logger.WithError(dbErr).WithField("episode_id", episode.ID).Error("Failed to persist subtitle failure")
		}
		c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Subtitle processing failed")
		return false
	}

	episode.SubtitleProcessedPath = destination
	episode.SubtitleStatus = models.AssetStatusProcessed
	episode.ErrorMessage = ""
	episode.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateEpisode(episode); err != nil {
		c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Failed to persist processed subtitle")
		return false
	}

	c.logger.WithFields(logrus.Fields{
		"episode_id": episode.ID,
		"encoding":   result.InputEncoding,
		"cues_in":    result.InputCount,
		"cues_out":   result.OutputCount,
	}).Info("Subtitle processed")
	return true
}
