package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/ai"
)

// TranslateController fills in Persian titles for a course and its episodes
// using whichever AI provider is available.
type TranslateController struct {
	db         *models.Database
	translator *ai.Translator
	logger     *logrus.Logger
}

// NewTranslateController creates a new translate controller
func NewTranslateController(db *models.Database, translator *ai.Translator, logger *logrus.Logger) *TranslateController {
	return &TranslateController{db: db, translator: translator, logger: logger}
}

// ProcessCourse translates the course title and every episode title that does
// not yet have a Persian form. Missing providers make this a no-op.
func (c *TranslateController) ProcessCourse(ctx context.Context, courseID uint64) error {
	if !c.translator.Available() {
		c.logger.Debug("No translation provider configured, skipping")
		return nil
	}

	course, err := c.db.GetCourseByID(courseID)
	if err != nil {
		return fmt.Errorf("course not found: %w", err)
	}

	if course.TitleFa == "" && course.TitleEn != "" {
		translated, err := c.translator.TranslateTitle(ctx, course.TitleEn)
		if err != nil {
			c.logger.WithError(err).WithField("course_id", courseID).Warn("Course title translation failed")
		} else {
			course.TitleFa = translated
			course.UpdatedAt = time.Now().UTC()
			if err := c.db.UpdateCourse(course); err != nil {
				return fmt.Errorf("failed to persist course translation: %w", err)
			}
		}
	}

	episodes, err := c.db.GetEpisodesByCourse(courseID)
	if err != nil {
		return fmt.Errorf("failed to load episodes: %w", err)
	}

	translated := 0
	for _, episode := range episodes {
		if episode.TitleFa != "" || episode.TitleEn == "" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		title, err := c.translator.TranslateTitle(ctx, episode.TitleEn)
		if err != nil {
			c.logger.WithError(err).WithField("episode_id", episode.ID).Warn("Episode title translation failed")
			continue
		}
		episode.TitleFa = title
		episode.UpdatedAt = time.Now().UTC()
		if err := c.db.UpdateEpisode(episode); err != nil {
			return fmt.Errorf("failed to persist episode translation: %w", err)
		}
		translated++
	}

	c.logger.WithFields(logrus.Fields{
		"course_id":  courseID,
		"translated": translated,
	}).Info("Translation pass finished")
	return nil
}
