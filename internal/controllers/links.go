package controllers

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/downloader"
)

// LinksController applies pasted download-link batches to a course.
type LinksController struct {
	db      *models.Database
	matcher *downloader.Matcher
	logger  *logrus.Logger
}

// NewLinksController creates a new links controller
func NewLinksController(db *models.Database, matcher *downloader.Matcher, logger *logrus.Logger) *LinksController {
	return &LinksController{db: db, matcher: matcher, logger: logger}
}

// ApplyBatch parses rawLinks, reconciles them against the course's episodes
// and, in apply mode, persists the batch and the episode changes. Dry-run
// (applyChanges false) computes the same result without mutating anything.
func (c *LinksController) ApplyBatch(courseID uint64, rawLinks string, applyChanges bool) (*downloader.MatchResult, error) {
	course, err := c.db.GetCourseByID(courseID)
	if err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	links := downloader.ParseBulkLinks(rawLinks)
	if len(links) == 0 {
		return nil, fmt.Errorf("no valid links found")
	}

	if applyChanges {
		merged, err := c.matcher.MergeDuplicateEpisodes(courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to merge duplicate episodes: %w", err)
		}
		if merged > 0 {
			c.logger.WithFields(logrus.Fields{
				"course_id": courseID,
				"merged":    merged,
			}).Info("Merged duplicate episodes before applying links")
		}
	}

	result, err := c.matcher.Apply(courseID, links, applyChanges)
	if err != nil {
		return nil, err
	}

	if applyChanges {
		batch := &models.LinkBatch{
			CourseID:    courseID,
			RawLinks:    rawLinks,
			Token:       links[0].Token,
			Hash:        links[0].Hash,
			CourseAPIID: firstCourseAPIID(links),
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := c.db.CreateLinkBatch(batch); err != nil {
			return nil, fmt.Errorf("failed to record link batch: %w", err)
		}

		if result.Matched+result.Created > 0 && course.ClearLinksExpired() {
			course.UpdatedAt = time.Now().UTC()
			if err := c.db.UpdateCourse(course); err != nil {
				return nil, fmt.Errorf("failed to clear link expiry: %w", err)
			}
			c.logger.WithField("course_id", courseID).Info("Fresh links accepted, expiry flag cleared")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"course_id": courseID,
		"links":     len(links),
		"matched":   result.Matched,
		"created":   result.Created,
		"unmatched": result.Unmatched,
		"dry_run":   !applyChanges,
	}).Info("Link batch processed")

	return result, nil
}

// Batches returns the stored link batches for a course, newest first.
func (c *LinksController) Batches(courseID uint64) ([]*models.LinkBatch, error) {
	return c.db.GetLinkBatchesByCourse(courseID)
}

func firstCourseAPIID(links []downloader.ParsedLink) string {
	for _, link := range links {
		if link.CourseAPIID != "" {
			return link.CourseAPIID
		}
	}
	return ""
}
