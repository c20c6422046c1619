package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/acmsdev/acms/internal/models"
)

var slugUnsafeRe = regexp.MustCompile(`[^a-z0-9]+`)

// EnsureCourseSlug returns the course slug, deriving one from the title when
// it is still empty. The caller persists the course if the slug changed.
func EnsureCourseSlug(course *models.Course) string {
	if course.Slug != "" {
		return course.Slug
	}

	base := course.TitleEn
	if base == "" {
		base = fmt.Sprintf("course-%d", course.ID)
	}
	slug := slugUnsafeRe.ReplaceAllString(strings.ToLower(base), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 120 {
		slug = slug[:120]
	}
	course.Slug = slug
	return slug
}

// CourseStorageRoot ensures and returns the per-course storage layout:
// videos/, subtitles/original/, subtitles/processed/, exercises/.
func CourseStorageRoot(storagePath string, course *models.Course) (string, error) {
	root := filepath.Join(storagePath, "courses", EnsureCourseSlug(course))
	for _, dir := range []string{
		"videos",
		filepath.Join("subtitles", "original"),
		filepath.Join("subtitles", "processed"),
		"exercises",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return "", fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return root, nil
}

// Progress summarizes how far a course's pipeline has advanced.
type Progress struct {
	CourseID           uint64  `json:"course_id"`
	TotalEpisodes      int     `json:"total_episodes"`
	DownloadedVideos   int     `json:"downloaded_videos"`
	ProcessedSubtitles int     `json:"processed_subtitles"`
	FailedItems        int     `json:"failed_items"`
	ProgressPercent    float64 `json:"progress_percent"`
	LinksExpired       bool    `json:"links_expired"`
}

// CourseProgress computes progress counters over a course's episodes.
func CourseProgress(course *models.Course, episodes []*models.Episode) Progress {
	progress := Progress{
		CourseID:      course.ID,
		TotalEpisodes: len(episodes),
		LinksExpired:  course.LinksExpired,
	}

	for _, ep := range episodes {
		switch ep.VideoStatus {
		case models.AssetStatusDownloaded, models.AssetStatusProcessed, models.AssetStatusUploaded:
			progress.DownloadedVideos++
		}
		switch ep.SubtitleStatus {
		case models.AssetStatusProcessed, models.AssetStatusUploaded:
			progress.ProcessedSubtitles++
		}
		if ep.HasFailedAsset() {
			progress.FailedItems++
		}
	}

	if progress.TotalEpisodes > 0 {
		progress.ProgressPercent = float64(progress.DownloadedVideos) / float64(progress.TotalEpisodes) * 100
	}
	return progress
}
