package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkVideo(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/271xv/001-Introduction-m1YH-git.ir.mp4?token=abc&hash=h1")
	require.True(t, ok)

	assert.Equal(t, "001-Introduction-m1YH-git.ir.mp4", link.Filename)
	require.NotNil(t, link.EpisodeNumber)
	assert.Equal(t, 1, *link.EpisodeNumber)
	assert.Equal(t, "Introduction", link.EpisodeTitle)
	assert.Equal(t, "m1YH", link.HashCode)
	assert.Equal(t, FileTypeVideo, link.FileType)
	assert.Equal(t, "abc", link.Token)
	assert.Equal(t, "h1", link.Hash)
	assert.Equal(t, "271xv", link.CourseAPIID)
}

func TestParseLinkPersianSubtitle(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/271xv/001-Introduction-m1YH-git.ir.fa.srt?token=abc&hash=h1")
	require.True(t, ok)

	assert.Equal(t, FileTypeSubtitle, link.FileType)
	assert.Equal(t, "fa", link.SubtitleLang)
	require.NotNil(t, link.EpisodeNumber)
	assert.Equal(t, 1, *link.EpisodeNumber)
	assert.Equal(t, "Introduction", link.EpisodeTitle)
}

func TestParseLinkEnglishSubtitle(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/c/002-Setup.en.srt")
	require.True(t, ok)
	assert.Equal(t, FileTypeSubtitle, link.FileType)
	assert.Equal(t, "en", link.SubtitleLang)
}

func TestParseLinkExercise(t *testing.T) {
	for _, ext := range []string{"zip", "rar", "7z", "pdf"} {
		link, ok := ParseLink("https://dl.example.com/c/exercises." + ext)
		require.True(t, ok, ext)
		assert.Equal(t, FileTypeExercise, link.FileType, ext)
	}
}

func TestParseLinkFilenameFromQuery(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/download?filename=003-Testing.mp4&token=t&hash=h")
	require.True(t, ok)
	assert.Equal(t, "003-Testing.mp4", link.Filename)
	require.NotNil(t, link.EpisodeNumber)
	assert.Equal(t, 3, *link.EpisodeNumber)
}

func TestParseLinkNoFilename(t *testing.T) {
	_, ok := ParseLink("https://dl.example.com/")
	assert.False(t, ok)
}

func TestParseLinkEncodedFilename(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/c/005-Advanced%20Topics.mp4")
	require.True(t, ok)
	assert.Equal(t, "005-Advanced Topics.mp4", link.DecodedFilename)
	assert.Equal(t, "Advanced Topics", link.EpisodeTitle)
}

func TestParseLinkNumberlessFilename(t *testing.T) {
	link, ok := ParseLink("https://dl.example.com/c/bonus-material.mp4")
	require.True(t, ok)
	assert.Nil(t, link.EpisodeNumber)
	assert.Empty(t, link.EpisodeTitle)
}

func TestParseLinkCourseAPIIDFromPath(t *testing.T) {
	link, ok := ParseLink("https://api.example.com/get-download-links/ab12c/?token=t&hash=h")
	require.True(t, ok)
	assert.Equal(t, "ab12c", link.CourseAPIID)
}

func TestParseBulkLinks(t *testing.T) {
	raw := `some intro text
https://dl.example.com/c/001-One.mp4?token=t&amp;hash=h
not a link
https://dl.example.com/c/002-Two.mp4
`
	links := ParseBulkLinks(raw)
	require.Len(t, links, 2)
	assert.Equal(t, "t", links[0].Token)
	assert.Equal(t, "h", links[0].Hash)
	assert.Equal(t, "002-Two.mp4", links[1].Filename)
}

func TestParseBulkLinksEmpty(t *testing.T) {
	assert.Empty(t, ParseBulkLinks("no urls in here"))
}

func TestParseLinkIdempotent(t *testing.T) {
	url := "https://dl.example.com/271xv/010-Closures-Zx9Q-git.ir.mp4?token=abc&hash=h1"
	first, ok := ParseLink(url)
	require.True(t, ok)
	second, ok := ParseLink(url)
	require.True(t, ok)
	assert.Equal(t, first, second)
}
