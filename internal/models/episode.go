package models

import "time"

// Episode represents a single lesson of a course and the state of its three
// downloadable assets (video, subtitle, exercise)
type Episode struct {
	ID       uint64 `boltholdKey:"ID"`
	CourseID uint64 `boltholdIndex:"CourseID"`

	EpisodeNumber *int
	TitleEn       string
	TitleFa       string
	Duration      string
	SortOrder     int

	VideoDownloadURL string
	VideoLocalPath   string
	VideoFilename    string
	VideoSize        int64
	VideoStatus      AssetStatus

	SubtitleDownloadURL   string
	SubtitleLocalPath     string
	SubtitleFilename      string
	SubtitleLanguage      string
	SubtitleProcessedPath string
	SubtitleStatus        AssetStatus

	ExerciseDownloadURL string
	ExerciseLocalPath   string
	ExerciseFilename    string
	ExerciseStatus      AssetStatus

	// HashCode is the short token extracted from the source filename,
	// used for identity and dedup across link batches.
	HashCode      string
	ErrorMessage  string
	RetryCount    int
	LastAttemptAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEpisode creates an episode with the default asset statuses. Exercises
// are optional, so that asset starts as not_available.
func NewEpisode(courseID uint64) *Episode {
	return &Episode{
		CourseID:       courseID,
		VideoStatus:    AssetStatusPending,
		SubtitleStatus: AssetStatusPending,
		ExerciseStatus: AssetStatusNotAvailable,
	}
}

// Asset is a read view over one asset kind of an episode.
type Asset struct {
	Kind        AssetKind
	DownloadURL string
	LocalPath   string
	Filename    string
	Status      AssetStatus
	Language    string
}

// Asset returns the view for the given kind.
func (e *Episode) Asset(kind AssetKind) Asset {
	switch kind {
	case AssetVideo:
		return Asset{Kind: kind, DownloadURL: e.VideoDownloadURL, LocalPath: e.VideoLocalPath, Filename: e.VideoFilename, Status: e.VideoStatus}
	case AssetSubtitle:
		return Asset{Kind: kind, DownloadURL: e.SubtitleDownloadURL, LocalPath: e.SubtitleLocalPath, Filename: e.SubtitleFilename, Status: e.SubtitleStatus, Language: e.SubtitleLanguage}
	case AssetExercise:
		return Asset{Kind: kind, DownloadURL: e.ExerciseDownloadURL, LocalPath: e.ExerciseLocalPath, Filename: e.ExerciseFilename, Status: e.ExerciseStatus}
	}
	return Asset{Kind: kind}
}

// SetAssetStatus updates the status field for the given kind.
func (e *Episode) SetAssetStatus(kind AssetKind, status AssetStatus) {
	switch kind {
	case AssetVideo:
		e.VideoStatus = status
	case AssetSubtitle:
		e.SubtitleStatus = status
	case AssetExercise:
		e.ExerciseStatus = status
	}
}

// SetAssetLink records a fresh download link for the given kind. A new link
// supersedes a stale attempt, so error/downloaded statuses reset to pending.
func (e *Episode) SetAssetLink(kind AssetKind, url, filename, language string) {
	switch kind {
	case AssetVideo:
		e.VideoDownloadURL = url
		e.VideoFilename = filename
		if e.VideoStatus == AssetStatusError || e.VideoStatus == AssetStatusDownloaded {
			e.VideoStatus = AssetStatusPending
		}
	case AssetSubtitle:
		e.SubtitleDownloadURL = url
		e.SubtitleFilename = filename
		e.SubtitleLanguage = language
		if e.SubtitleStatus == AssetStatusError || e.SubtitleStatus == AssetStatusDownloaded {
			e.SubtitleStatus = AssetStatusPending
		}
	case AssetExercise:
		e.ExerciseDownloadURL = url
		e.ExerciseFilename = filename
		if e.ExerciseStatus == AssetStatusError || e.ExerciseStatus == AssetStatusDownloaded ||
			e.ExerciseStatus == AssetStatusNotAvailable {
			e.ExerciseStatus = AssetStatusPending
		}
	}
}

// SetAssetLocalPath records where the downloaded bytes landed.
func (e *Episode) SetAssetLocalPath(kind AssetKind, path string) {
	switch kind {
	case AssetVideo:
		e.VideoLocalPath = path
	case AssetSubtitle:
		e.SubtitleLocalPath = path
	case AssetExercise:
		e.ExerciseLocalPath = path
	}
}

// AssetFilenames returns the non-empty filenames across all asset kinds.
func (e *Episode) AssetFilenames() []string {
	var names []string
	for _, name := range []string{e.VideoFilename, e.SubtitleFilename, e.ExerciseFilename} {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PopulatedAssetURLs counts how many asset kinds carry a download URL.
// Used to pick the survivor when merging duplicate episodes.
func (e *Episode) PopulatedAssetURLs() int {
	count := 0
	for _, url := range []string{e.VideoDownloadURL, e.SubtitleDownloadURL, e.ExerciseDownloadURL} {
		if url != "" {
			count++
		}
	}
	return count
}

// HasFailedAsset reports whether any asset kind is in error.
func (e *Episode) HasFailedAsset() bool {
	return e.VideoStatus == AssetStatusError ||
		e.SubtitleStatus == AssetStatusError ||
		e.ExerciseStatus == AssetStatusError
}
