package controllers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/downloader"
	"github.com/acmsdev/acms/internal/utils"
)

// DownloadController walks a course's episodes and fetches every pending
// asset, recording per-asset status transitions as it goes.
type DownloadController struct {
	db        *models.Database
	engine    *downloader.Engine
	validator *downloader.Validator
	cfg       *config.Config
	logger    *logrus.Logger

	mu sync.Mutex // guards course-wide state during concurrent episode work
}

// NewDownloadController creates a new download controller
func NewDownloadController(db *models.Database, engine *downloader.Engine, validator *downloader.Validator, cfg *config.Config, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		db:        db,
		engine:    engine,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessCourse downloads every downloadable asset of the course. Episode
// failures are isolated: one bad asset never stops the rest of the course.
// The course ends in processing when at least one asset arrived and nothing
// failed, error otherwise.
func (c *DownloadController) ProcessCourse(ctx context.Context, courseID uint64) error {
	course, err := c.db.GetCourseByID(courseID)
	if err != nil {
		return fmt.Errorf("course not found: %w", err)
	}

	course.Status = models.CourseStatusDownloading
	course.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateCourse(course); err != nil {
		return fmt.Errorf("failed to update course status: %w", err)
	}

	if _, err := CourseStorageRoot(c.cfg.StoragePath, course); err != nil {
		return c.failCourse(course, err)
	}
	if err := c.db.UpdateCourse(course); err != nil {
		return fmt.Errorf("failed to persist course slug: %w", err)
	}

	episodes, err := c.db.GetEpisodesByCourse(courseID)
	if err != nil {
		return c.failCourse(course, fmt.Errorf("failed to load episodes: %w", err))
	}
	sortEpisodes(episodes)

	if course.DebugMode && len(episodes) > 1 {
		c.logger.WithField("course_id", courseID).Info("Debug mode, downloading first episode only")
		episodes = episodes[:1]
	}

	concurrency := c.cfg.MaxConcurrentDownloads
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for _, episode := range episodes {
		wg.Add(1)
		go func(ep *models.Episode) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			c.processEpisode(ctx, course, ep)
		}(episode)
	}
	wg.Wait()

	return c.finishCourse(course)
}

// processEpisode attempts every downloadable asset of one episode in order.
func (c *DownloadController) processEpisode(ctx context.Context, course *models.Course, episode *models.Episode) {
	for _, kind := range []models.AssetKind{models.AssetVideo, models.AssetSubtitle, models.AssetExercise} {
		asset := episode.Asset(kind)
		if asset.DownloadURL == "" || !asset.Status.IsDownloadable() {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		c.downloadAsset(ctx, course, episode, kind)
	}
}

// downloadAsset runs one download attempt for one asset, committing the
// status transition before and after the transfer. RetryCount increments on
// every attempt, success or failure.
func (c *DownloadController) downloadAsset(ctx context.Context, course *models.Course, episode *models.Episode, kind models.AssetKind) {
	asset := episode.Asset(kind)
	now := time.Now().UTC()

	episode.SetAssetStatus(kind, models.AssetStatusDownloading)
	episode.LastAttemptAt = &now
	episode.RetryCount++
	episode.UpdatedAt = now
	if err := c.db.UpdateEpisode(episode); err != nil {
		c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Failed to mark asset downloading")
		return
	}

	destination := filepath.Join(assetDir(kind, c.cfg.StoragePath, course), c.assetFilename(episode, asset))

	log := c.logger.WithFields(logrus.Fields{
		"course_id":  course.ID,
		"episode_id": episode.ID,
		"asset":      string(kind),
		"url":        asset.DownloadURL,
	})
	log.Info("Downloading asset")

	result, err := c.engine.Download(ctx, asset.DownloadURL, destination, &downloader.Options{
		OnLog: func(event string, fields map[string]interface{}) {
			c.logger.WithFields(logrus.Fields(fields)).Debug(event)
		},
	})
	if err != nil {
		c.recordFailure(course, episode, kind, asset.DownloadURL, err)
		return
	}

	if !c.validateAsset(kind, result.Path) {
		c.recordValidationFailure(episode, kind)
		return
	}

	episode.SetAssetLocalPath(kind, result.Path)
	episode.SetAssetStatus(kind, models.AssetStatusDownloaded)
	if kind == models.AssetVideo {
		episode.VideoSize = result.TotalSize
		if meta, ok := c.validator.ProbeVideo(result.Path); ok {
			episode.Duration = meta.Duration
		}
	}
	episode.ErrorMessage = ""
	episode.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateEpisode(episode); err != nil {
		log.WithError(err).Error("Failed to persist downloaded asset")
		return
	}
	log.WithField("bytes", result.DownloadedBytes).Info("Asset downloaded")
}

func (c *DownloadController) validateAsset(kind models.AssetKind, path string) bool {
	switch kind {
	case models.AssetVideo:
		return c.validator.ValidateVideo(path)
	case models.AssetSubtitle:
		return c.validator.ValidateSubtitle(path)
	case models.AssetExercise:
		return c.validator.ValidateExercise(path)
	}
	return false
}

func (c *DownloadController) recordFailure(course *models.Course, episode *models.Episode, kind models.AssetKind, url string, err error) {
	message := downloader.BuildDownloadErrorMessage(string(kind), err, url)
	episode.SetAssetStatus(kind, models.AssetStatusError)
	episode.ErrorMessage = message
	episode.UpdatedAt = time.Now().UTC()
	if dbErr := c.db.UpdateEpisode(episode); dbErr != nil {
		c.logger.WithError(dbErr).WithField("episode_id", episode.ID).Error("Failed to persist asset failure")
	}

	c.logger.WithError(err).WithFields(logrus.Fields{
		"course_id":  course.ID,
		"episode_id": episode.ID,
		"asset":      string(kind),
	}).Error("Asset download failed")

	if downloader.IsExpiredLinkError(err, url) {
		c.mu.Lock()
		first := course.MarkLinksExpired()
		if first {
			course.UpdatedAt = time.Now().UTC()
			if dbErr := c.db.UpdateCourse(course); dbErr != nil {
				c.logger.WithError(dbErr).Error("Failed to persist link expiry")
			}
		}
		c.mu.Unlock()
		if first {
			c.logger.WithField("course_id", course.ID).Warn(downloader.ExpiredLinkUserMessage)
		}
	}
}

func (c *DownloadController) recordValidationFailure(episode *models.Episode, kind models.AssetKind) {
	episode.SetAssetStatus(kind, models.AssetStatusError)
	episode.ErrorMessage = fmt.Sprintf("%s validation failed after download", kind)
	episode.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateEpisode(episode); err != nil {
		c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Failed to persist validation failure")
	}
	c.logger.WithFields(logrus.Fields{
		"episode_id": episode.ID,
		"asset":      string(kind),
	}).Error("Downloaded asset failed validation")
}

// finishCourse settles the course status after a download pass.
func (c *DownloadController) finishCourse(course *models.Course) error {
	episodes, err := c.db.GetEpisodesByCourse(course.ID)
	if err != nil {
		return c.failCourse(course, fmt.Errorf("failed to reload episodes: %w", err))
	}

	failed := 0
	downloaded := 0
	for _, ep := range episodes {
		if ep.HasFailedAsset() {
			failed++
		}
		if ep.VideoStatus == models.AssetStatusDownloaded {
			downloaded++
		}
	}

	if failed > 0 {
		course.Status = models.CourseStatusError
	} else {
		course.Status = models.CourseStatusProcessing
	}
	course.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateCourse(course); err != nil {
		return fmt.Errorf("failed to update course status: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"course_id":  course.ID,
		"downloaded": downloaded,
		"failed":     failed,
		"status":     string(course.Status),
	}).Info("Course download pass finished")
	return nil
}

func (c *DownloadController) failCourse(course *models.Course, cause error) error {
	course.Status = models.CourseStatusError
	course.UpdatedAt = time.Now().UTC()
	if err := c.db.UpdateCourse(course); err != nil {
		c.logger.WithError(err).Error("Failed to persist course error status")
	}
	return cause
}

// RetryAsset resets a failed asset back to pending so the next download pass
// picks it up. The stored error message stays until a later attempt succeeds.
func (c *DownloadController) RetryAsset(episodeID uint64, kind models.AssetKind) error {
	episode, err := c.db.GetEpisodeByID(episodeID)
	if err != nil {
		return fmt.Errorf("episode not found: %w", err)
	}
	if episode.Asset(kind).Status != models.AssetStatusError {
		return fmt.Errorf("asset %s is not in error state", kind)
	}
	episode.SetAssetStatus(kind, models.AssetStatusPending)
	episode.UpdatedAt = time.Now().UTC()
	return c.db.UpdateEpisode(episode)
}

// RetryEpisode resets every errored asset of the episode back to pending and
// reports which kinds were reset.
func (c *DownloadController) RetryEpisode(episodeID uint64) ([]models.AssetKind, error) {
	episode, err := c.db.GetEpisodeByID(episodeID)
	if err != nil {
		return nil, fmt.Errorf("episode not found: %w", err)
	}

	reset := []models.AssetKind{}
	for _, kind := range []models.AssetKind{models.AssetVideo, models.AssetSubtitle, models.AssetExercise} {
		if episode.Asset(kind).Status != models.AssetStatusError {
			continue
		}
		if err := c.RetryAsset(episode.ID, kind); err != nil {
			return reset, err
		}
		reset = append(reset, kind)
	}
	return reset, nil
}

// SweepStaleDownloads moves assets stuck in downloading longer than maxAge
// to error. Covers crashes and kills that left a transfer mid-flight.
func (c *DownloadController) SweepStaleDownloads(maxAge time.Duration) (int, error) {
	courses, err := c.db.GetAllCourses()
	if err != nil {
		return 0, fmt.Errorf("failed to list courses: %w", err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	swept := 0
	for _, course := range courses {
		episodes, err := c.db.GetEpisodesByCourse(course.ID)
		if err != nil {
			c.logger.WithError(err).WithField("course_id", course.ID).Error("Failed to load episodes for sweep")
			continue
		}
		for _, episode := range episodes {
			changed := false
			for _, kind := range []models.AssetKind{models.AssetVideo, models.AssetSubtitle, models.AssetExercise} {
				if episode.Asset(kind).Status != models.AssetStatusDownloading {
					continue
				}
				if episode.LastAttemptAt != nil && episode.LastAttemptAt.After(cutoff) {
					continue
				}
				episode.SetAssetStatus(kind, models.AssetStatusError)
				episode.ErrorMessage = fmt.Sprintf("%s download timed out", kind)
				changed = true
				swept++
			}
			if changed {
				episode.UpdatedAt = time.Now().UTC()
				if err := c.db.UpdateEpisode(episode); err != nil {
					c.logger.WithError(err).WithField("episode_id", episode.ID).Error("Failed to persist stale download sweep")
				}
			}
		}
	}

	if swept > 0 {
		c.logger.WithField("swept", swept).Warn("Reset stale downloads to error")
	}
	return swept, nil
}

// assetFilename derives the on-disk name for an asset, preferring the source
// filename with site markers stripped.
func (c *DownloadController) assetFilename(episode *models.Episode, asset models.Asset) string {
	if cleaned := utils.CleanFilename(asset.Filename); cleaned != "" {
		return cleaned
	}
	number := 0
	if episode.EpisodeNumber != nil {
		number = *episode.EpisodeNumber
	}
	_, ext := utils.SplitExtension(asset.Filename)
	if ext == "" {
		ext = defaultExtension(asset.Kind)
	}
	return utils.BuildEpisodeFilename(number, episode.TitleEn, ext)
}

func defaultExtension(kind models.AssetKind) string {
	switch kind {
	case models.AssetVideo:
		return ".mp4"
	case models.AssetSubtitle:
		return ".srt"
	case models.AssetExercise:
		return ".zip"
	}
	return ""
}

// assetDir maps an asset kind to its directory inside the course storage layout.
func assetDir(kind models.AssetKind, storagePath string, course *models.Course) string {
	base := filepath.Join(storagePath, "courses", course.Slug)
	switch kind {
	case models.AssetVideo:
		return filepath.Join(base, "videos")
	case models.AssetSubtitle:
		return filepath.Join(base, "subtitles", "original")
	case models.AssetExercise:
		return filepath.Join(base, "exercises")
	}
	return base
}

func sortEpisodes(episodes []*models.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		ni, nj := episodeSortKey(episodes[i]), episodeSortKey(episodes[j])
		if ni != nj {
			return ni < nj
		}
		return episodes[i].SortOrder < episodes[j].SortOrder
	})
}

func episodeSortKey(ep *models.Episode) int {
	if ep.EpisodeNumber == nil {
		return 1 << 30
	}
	return *ep.EpisodeNumber
}
