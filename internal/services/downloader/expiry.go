package downloader

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Stable marker carried in an episode's error message when a download failed
// because the course's signed links have expired. Callers special-case the
// prefix.
const (
	ExpiredLinkErrorPrefix  = "LINK_EXPIRED"
	ExpiredLinkUserMessage  = "Download link has expired. Please provide new links."
	ExpiredLinkErrorMessage = ExpiredLinkErrorPrefix + ": " + ExpiredLinkUserMessage
)

var expiredHints = []string{
	"expired",
	"token expired",
	"invalid token",
	"forbidden",
	"signature",
}

// IsExpiredLinkError decides whether a failed download means "the access
// token expired" rather than an ordinary network/server failure. Only
// tokenized URLs are ever classified as expired.
func IsExpiredLinkError(err error, rawURL string) bool {
	if err == nil || !IsTokenizedURL(rawURL) {
		return false
	}

	statusCode := 0
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		statusCode = dlErr.StatusCode
	}
	message := strings.ToLower(err.Error())

	switch statusCode {
	case 401, 403, 410:
		return true
	case 404:
		if strings.Contains(message, "token") || strings.Contains(message, "hash") {
			return true
		}
	}

	for _, hint := range expiredHints {
		if strings.Contains(message, hint) {
			return true
		}
	}
	return false
}

// IsTokenizedURL reports whether the URL carries both a token and a hash
// query parameter, marking it as a time-limited signed download link.
func IsTokenizedURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	query := parsed.Query()
	return query.Has("token") && query.Has("hash")
}

// BuildDownloadErrorMessage converts a download failure into the episode's
// error message, using the stable expiry marker when the link has expired.
func BuildDownloadErrorMessage(assetLabel string, err error, rawURL string) string {
	if IsExpiredLinkError(err, rawURL) {
		return ExpiredLinkErrorMessage
	}
	return fmt.Sprintf("%s download failed: %v", assetLabel, err)
}
