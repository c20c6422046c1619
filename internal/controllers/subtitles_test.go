package controllers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/processor"
)

func TestSubtitleProcessCourse(t *testing.T) {
	db := testDB(t)
	cfg := &config.Config{StoragePath: t.TempDir()}

	course := &models.Course{SourceURL: "https://src", TitleEn: "Sub Course", Slug: "sub-course", Status: models.CourseStatusProcessing}
	require.NoError(t, db.CreateCourse(course))

	sourceDir := filepath.Join(cfg.StoragePath, "courses", "sub-course", "subtitles", "original")
	require.NoError(t, os.MkdirAll(sourceDir, 0755))
	sourcePath := filepath.Join(sourceDir, "001-Introduction.fa.srt")
	srt := "1\n00:00:01,000 --> 00:00:02,000\nسلام\n\n2\n00:00:02,500 --> 00:00:04,000\ngit.ir\n"
	require.NoError(t, os.WriteFile(sourcePath, []byte(srt), 0644))

	ep := models.NewEpisode(course.ID)
	num := 1
	ep.EpisodeNumber = &num
	ep.SubtitleStatus = models.AssetStatusDownloaded
	ep.SubtitleLocalPath = sourcePath
	require.NoError(t, db.CreateEpisode(ep))

	skipped := models.NewEpisode(course.ID)
	require.NoError(t, db.CreateEpisode(skipped))

	proc, err := processor.NewProcessor(processor.DefaultConfig())
	require.NoError(t, err)
	ctrl := NewSubtitleController(db, proc, cfg, testLogger())
	require.NoError(t, ctrl.ProcessCourse(course.ID))

	got, err := db.GetEpisodeByID(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusProcessed, got.SubtitleStatus)
	require.NotEmpty(t, got.SubtitleProcessedPath)
	assert.True(t, strings.HasSuffix(got.SubtitleProcessedPath, "001-Introduction.vtt"))
	assert.Contains(t, got.SubtitleProcessedPath, filepath.Join("subtitles", "processed"))

	output, err := os.ReadFile(got.SubtitleProcessedPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(output), "WEBVTT"))
	assert.NotContains(t, string(output), "git.ir")

	// Untouched episodes stay untouched.
	gotSkipped, err := db.GetEpisodeByID(skipped.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusPending, gotSkipped.SubtitleStatus)

	gotCourse, err := db.GetCourseByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusReadyForUpload, gotCourse.Status)
}

func TestSubtitleProcessCourseFailureIsolated(t *testing.T) {
	db := testDB(t)
	cfg := &config.Config{StoragePath: t.TempDir()}

	course := &models.Course{SourceURL: "https://src", Slug: "c", Status: models.CourseStatusProcessing}
	require.NoError(t, db.CreateCourse(course))

	ep := models.NewEpisode(course.ID)
	ep.SubtitleStatus = models.AssetStatusDownloaded
	ep.SubtitleLocalPath = filepath.Join(cfg.StoragePath, "does-not-exist.srt")
	require.NoError(t, db.CreateEpisode(ep))

	proc, err := processor.NewProcessor(processor.DefaultConfig())
	require.NoError(t, err)
	ctrl := NewSubtitleController(db, proc, cfg, testLogger())
	require.NoError(t, ctrl.ProcessCourse(course.ID))

	got, err := db.GetEpisodeByID(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusError, got.SubtitleStatus)
	assert.Contains(t, got.ErrorMessage, "subtitle processing failed")

	// Nothing processed, so the course does not advance.
	gotCourse, err := db.GetCourseByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusProcessing, gotCourse.Status)
}
