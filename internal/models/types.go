package models

// CourseStatus represents the overall lifecycle of a course
type CourseStatus string

const (
	CourseStatusScraping       CourseStatus = "scraping"
	CourseStatusScraped        CourseStatus = "scraped"
	CourseStatusDownloading    CourseStatus = "downloading"
	CourseStatusProcessing     CourseStatus = "processing"
	CourseStatusReadyForUpload CourseStatus = "ready_for_upload"
	CourseStatusUploading      CourseStatus = "uploading"
	CourseStatusCompleted      CourseStatus = "completed"
	CourseStatusError          CourseStatus = "error"
)

// AssetKind identifies one of the three downloadable artifacts per episode
type AssetKind string

const (
	AssetVideo    AssetKind = "video"
	AssetSubtitle AssetKind = "subtitle"
	AssetExercise AssetKind = "exercise"
)

// AssetStatus represents the lifecycle of a single episode asset.
// Each asset kind moves through its own status independently.
type AssetStatus string

const (
	AssetStatusPending      AssetStatus = "pending"
	AssetStatusDownloading  AssetStatus = "downloading"
	AssetStatusDownloaded   AssetStatus = "downloaded"
	AssetStatusProcessing   AssetStatus = "processing"
	AssetStatusProcessed    AssetStatus = "processed"
	AssetStatusUploading    AssetStatus = "uploading"
	AssetStatusUploaded     AssetStatus = "uploaded"
	AssetStatusError        AssetStatus = "error"
	AssetStatusSkipped      AssetStatus = "skipped"
	AssetStatusNotAvailable AssetStatus = "not_available"
)

// IsDownloadable reports whether an asset in this status may start a download.
func (s AssetStatus) IsDownloadable() bool {
	return s == AssetStatusPending || s == AssetStatusError
}

// IsTerminal reports whether the status is a resting state that no pipeline
// step will advance on its own.
func (s AssetStatus) IsTerminal() bool {
	switch s {
	case AssetStatusUploaded, AssetStatusSkipped, AssetStatusNotAvailable:
		return true
	}
	return false
}
