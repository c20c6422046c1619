package downloader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tokenizedURL = "https://dl.example.com/c/001-Intro.mp4?token=abc&hash=h1"

func TestIsExpiredLinkErrorByStatus(t *testing.T) {
	for _, status := range []int{401, 403, 410} {
		err := &DownloadError{URL: tokenizedURL, StatusCode: status, Message: "denied"}
		assert.True(t, IsExpiredLinkError(err, tokenizedURL), "status %d", status)
	}
}

func TestIsExpiredLinkErrorNotFoundNeedsTokenHint(t *testing.T) {
	plain := &DownloadError{URL: tokenizedURL, StatusCode: 404, Message: "no such file"}
	assert.False(t, IsExpiredLinkError(plain, tokenizedURL))

	hinted := &DownloadError{URL: tokenizedURL, StatusCode: 404, Message: "token not valid for object"}
	assert.True(t, IsExpiredLinkError(hinted, tokenizedURL))
}

func TestIsExpiredLinkErrorByHint(t *testing.T) {
	err := errors.New("remote said: signature mismatch")
	assert.True(t, IsExpiredLinkError(err, tokenizedURL))
}

func TestIsExpiredLinkErrorRequiresTokenizedURL(t *testing.T) {
	err := &DownloadError{StatusCode: 403, Message: "forbidden"}
	assert.False(t, IsExpiredLinkError(err, "https://dl.example.com/c/001-Intro.mp4"))
	assert.False(t, IsExpiredLinkError(err, "https://dl.example.com/c/001-Intro.mp4?token=abc"))
	assert.False(t, IsExpiredLinkError(err, ""))
}

func TestIsExpiredLinkErrorOrdinaryFailure(t *testing.T) {
	err := &DownloadError{StatusCode: 500, Message: "internal server error"}
	assert.False(t, IsExpiredLinkError(err, tokenizedURL))

	assert.False(t, IsExpiredLinkError(errors.New("connection reset by peer"), tokenizedURL))
	assert.False(t, IsExpiredLinkError(nil, tokenizedURL))
}

func TestIsTokenizedURL(t *testing.T) {
	assert.True(t, IsTokenizedURL(tokenizedURL))
	assert.False(t, IsTokenizedURL("https://dl.example.com/c/file.mp4"))
	assert.False(t, IsTokenizedURL("https://dl.example.com/c/file.mp4?hash=h1"))
}

func TestBuildDownloadErrorMessage(t *testing.T) {
	expired := &DownloadError{StatusCode: 403, Message: "forbidden"}
	assert.Equal(t, ExpiredLinkErrorMessage, BuildDownloadErrorMessage("video", expired, tokenizedURL))

	ordinary := errors.New("connection refused")
	message := BuildDownloadErrorMessage("video", ordinary, tokenizedURL)
	assert.Contains(t, message, "video download failed")
	assert.Contains(t, message, "connection refused")
}
