package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/services/processor"
)

// minVideoSizeBytes is the fallback threshold used when no probe tool is
// available.
const minVideoSizeBytes = 1024

// Validator applies the type-specific validation policy before an asset is
// marked downloaded.
type Validator struct {
	// FFProbePath overrides the probe binary; defaults to "ffprobe" on PATH.
	FFProbePath string
	logger      *logrus.Logger
}

// NewValidator creates a validator using ffprobe from PATH.
func NewValidator(logger *logrus.Logger) *Validator {
	return &Validator{FFProbePath: "ffprobe", logger: logger}
}

// ValidateVideo reports whether the file is a non-empty, probe-valid media
// container. When the probe tool is unavailable it falls back to a minimal
// size check.
func (v *Validator) ValidateVideo(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}

	if _, err := exec.LookPath(v.FFProbePath); err != nil {
		v.logger.WithField("path", path).Debug("ffprobe unavailable, falling back to size check")
		return info.Size() > minVideoSizeBytes
	}

	cmd := exec.Command(v.FFProbePath, "-v", "error", "-show_format", "-show_streams", path)
	return cmd.Run() == nil
}

// ValidateSubtitle reports whether the file contains at least one well-formed
// cue entry.
func (v *Validator) ValidateSubtitle(path string) bool {
	payload, err := os.ReadFile(path)
	if err != nil || len(payload) == 0 {
		return false
	}

	text, _ := processor.DecodeSubtitle(payload)
	cues, err := processor.ParseCues(text)
	return err == nil && len(cues) > 0
}

// ValidateExercise only requires non-empty existence; archive formats are
// not opened.
func (v *Validator) ValidateExercise(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// VideoMetadata is the subset of probe output recorded per episode.
type VideoMetadata struct {
	Duration   string
	Size       string
	BitRate    string
	Resolution string
	Codec      string
}

// ProbeVideo extracts container metadata via ffprobe. Returns ok=false when
// the probe tool is missing or the file cannot be read as media.
func (v *Validator) ProbeVideo(path string) (*VideoMetadata, bool) {
	if _, err := exec.LookPath(v.FFProbePath); err != nil {
		return nil, false
	}

	cmd := exec.Command(v.FFProbePath, "-v", "error", "-print_format", "json", "-show_streams", "-show_format", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, false
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			BitRate  string `json:"bit_rate"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, false
	}

	meta := &VideoMetadata{
		Duration: probe.Format.Duration,
		Size:     probe.Format.Size,
		BitRate:  probe.Format.BitRate,
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			meta.Resolution = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
			meta.Codec = stream.CodecName
			break
		}
	}
	return meta, true
}
