package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitExtension(t *testing.T) {
	tests := []struct {
		in   string
		stem string
		ext  string
	}{
		{"001-Intro.mp4", "001-Intro", "mp4"},
		{"001-Intro.fa.srt", "001-Intro", "fa.srt"},
		{"001-Intro.en.srt", "001-Intro", "en.srt"},
		{"001-Intro.srt", "001-Intro", "srt"},
		{"archive.tar", "archive", "tar"},
		{"noextension", "noextension", ""},
		{".hidden", ".hidden", ""},
	}
	for _, tt := range tests {
		stem, ext := SplitExtension(tt.in)
		assert.Equal(t, tt.stem, stem, tt.in)
		assert.Equal(t, tt.ext, ext, tt.in)
	}
}

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"001-Introduction-m1YH-git.ir.mp4", "001-Introduction.mp4"},
		{"001-Introduction-git.ir.mp4", "001-Introduction.mp4"},
		{"001-Introduction-m1YH-git.ir.fa.srt", "001-Introduction.fa.srt"},
		{"002_Setup_Guide.mp4", "002-Setup-Guide.mp4"},
		{"plain.mp4", "plain.mp4"},
		{"-leading-trailing-.mp4", "leading-trailing.mp4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanFilename(tt.in), tt.in)
	}
}

func TestBuildEpisodeFilename(t *testing.T) {
	assert.Equal(t, "001-Introduction.mp4", BuildEpisodeFilename(1, "Introduction", ".mp4"))
	assert.Equal(t, "012-Advanced-Topics.mp4", BuildEpisodeFilename(12, "Advanced Topics", "mp4"))
	assert.Equal(t, "003-مقدمه.fa.srt", BuildEpisodeFilename(3, "مقدمه", "fa.srt"))
	// Unsafe punctuation is dropped, not escaped.
	assert.Equal(t, "004-Whats-New.mp4", BuildEpisodeFilename(4, "What's New?", "mp4"))
}
