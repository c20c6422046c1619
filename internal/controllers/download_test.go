package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/downloader"
	"github.com/acmsdev/acms/internal/utils"
)

func downloadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoragePath:                 t.TempDir(),
		DownloadRetryAttempts:       1,
		DownloadRetryBackoffSeconds: 1,
		RequestTimeoutSeconds:       5,
		MaxConcurrentDownloads:      2,
		UserAgent:                   "test-agent",
	}
}

func newDownloadController(t *testing.T, db *models.Database, cfg *config.Config) *DownloadController {
	t.Helper()
	logger := testLogger()
	engine := downloader.NewEngine(cfg, utils.NoCookies{}, logger)
	validator := downloader.NewValidator(logger)
	validator.FFProbePath = "not-a-real-probe"
	return NewDownloadController(db, engine, validator, cfg, logger)
}

func TestProcessCourseDownloadsAssets(t *testing.T) {
	videoBody := strings.Repeat("v", 2048)
	subtitleBody := "1\n00:00:01,000 --> 00:00:02,000\nhello\n"

	mux := http.NewServeMux()
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".mp4") {
			w.Write([]byte(videoBody))
			return
		}
		w.Write([]byte(subtitleBody))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	db := testDB(t)
	cfg := downloadTestConfig(t)
	course := &models.Course{SourceURL: "https://src", TitleEn: "My Course", Status: models.CourseStatusScraped}
	require.NoError(t, db.CreateCourse(course))

	ep := models.NewEpisode(course.ID)
	num := 1
	ep.EpisodeNumber = &num
	ep.TitleEn = "Introduction"
	ep.SetAssetLink(models.AssetVideo, ts.URL+"/files/001-Introduction.mp4", "001-Introduction.mp4", "")
	ep.SetAssetLink(models.AssetSubtitle, ts.URL+"/files/001-Introduction.fa.srt", "001-Introduction.fa.srt", "fa")
	require.NoError(t, db.CreateEpisode(ep))

	ctrl := newDownloadController(t, db, cfg)
	require.NoError(t, ctrl.ProcessCourse(context.Background(), course.ID))

	got, err := db.GetEpisodeByID(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusDownloaded, got.VideoStatus)
	assert.Equal(t, models.AssetStatusDownloaded, got.SubtitleStatus)
	assert.Equal(t, 2, got.RetryCount) // one attempt per asset
	assert.Empty(t, got.ErrorMessage)

	data, err := os.ReadFile(got.VideoLocalPath)
	require.NoError(t, err)
	assert.Len(t, data, 2048)
	assert.Contains(t, got.VideoLocalPath, "videos")
	assert.Contains(t, got.SubtitleLocalPath, "original")

	gotCourse, err := db.GetCourseByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusProcessing, gotCourse.Status)
	assert.NotEmpty(t, gotCourse.Slug)
}

func TestProcessCourseMarksExpiredLinks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusForbidden)
	}))
	defer ts.Close()

	db := testDB(t)
	cfg := downloadTestConfig(t)
	course := &models.Course{SourceURL: "https://src", TitleEn: "Expired Course", Status: models.CourseStatusScraped}
	require.NoError(t, db.CreateCourse(course))

	for i := 1; i <= 2; i++ {
		ep := models.NewEpisode(course.ID)
		n := i
		ep.EpisodeNumber = &n
		ep.SetAssetLink(models.AssetVideo, ts.URL+"/v.mp4?token=abc&hash=h1", "v.mp4", "")
		require.NoError(t, db.CreateEpisode(ep))
	}

	ctrl := newDownloadController(t, db, cfg)
	require.NoError(t, ctrl.ProcessCourse(context.Background(), course.ID))

	gotCourse, err := db.GetCourseByID(course.ID)
	require.NoError(t, err)
	assert.True(t, gotCourse.LinksExpired)
	assert.NotNil(t, gotCourse.LinksExpiredAt)
	assert.Equal(t, models.CourseStatusError, gotCourse.Status)

	episodes, err := db.GetEpisodesByCourse(course.ID)
	require.NoError(t, err)
	for _, ep := range episodes {
		assert.Equal(t, models.AssetStatusError, ep.VideoStatus)
		assert.Equal(t, downloader.ExpiredLinkErrorMessage, ep.ErrorMessage)
		assert.Equal(t, 1, ep.RetryCount)
	}
}

func TestProcessCourseValidationFailure(t *testing.T) {
	// Too small for the size fallback check.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer ts.Close()

	db := testDB(t)
	cfg := downloadTestConfig(t)
	course := &models.Course{SourceURL: "https://src", TitleEn: "Truncated", Status: models.CourseStatusScraped}
	require.NoError(t, db.CreateCourse(course))

	ep := models.NewEpisode(course.ID)
	num := 1
	ep.EpisodeNumber = &num
	ep.SetAssetLink(models.AssetVideo, ts.URL+"/001-Broken.mp4", "001-Broken.mp4", "")
	require.NoError(t, db.CreateEpisode(ep))

	ctrl := newDownloadController(t, db, cfg)
	require.NoError(t, ctrl.ProcessCourse(context.Background(), course.ID))

	got, err := db.GetEpisodeByID(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusError, got.VideoStatus)
	assert.Contains(t, got.ErrorMessage, "validation failed")
}

func TestProcessCourseDebugModeLimitsToFirstEpisode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("v", 2048)))
	}))
	defer ts.Close()

	db := testDB(t)
	cfg := downloadTestConfig(t)
	course := &models.Course{SourceURL: "https://src", TitleEn: "Debug", Status: models.CourseStatusScraped, DebugMode: true}
	require.NoError(t, db.CreateCourse(course))

	var ids []uint64
	for i := 1; i <= 3; i++ {
		ep := models.NewEpisode(course.ID)
		n := i
		ep.EpisodeNumber = &n
		ep.SetAssetLink(models.AssetVideo, ts.URL+"/v.mp4", "v.mp4", "")
		require.NoError(t, db.CreateEpisode(ep))
		ids = append(ids, ep.ID)
	}

	ctrl := newDownloadController(t, db, cfg)
	require.NoError(t, ctrl.ProcessCourse(context.Background(), course.ID))

	first, err := db.GetEpisodeByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusDownloaded, first.VideoStatus)

	for _, id := range ids[1:] {
		ep, err := db.GetEpisodeByID(id)
		require.NoError(t, err)
		assert.Equal(t, models.AssetStatusPending, ep.VideoStatus)
	}
}
