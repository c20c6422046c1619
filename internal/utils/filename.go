package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hashedSiteTagRe = regexp.MustCompile(`(?i)-[A-Za-z0-9]{4}-git\.ir$`)
	siteTagRe       = regexp.MustCompile(`(?i)-git\.ir$`)
	unsafeTitleRe   = regexp.MustCompile("[^a-zA-Z0-9؀-ۿ\\s-]")
)

// Language-qualified subtitle names carry a two-part extension.
var compoundExtensions = []string{".fa.srt", ".en.srt"}

// SplitExtension splits a filename into stem and extension, treating
// language-qualified subtitle suffixes (".fa.srt") as a single extension.
func SplitExtension(filename string) (stem, ext string) {
	lower := strings.ToLower(filename)
	for _, suffix := range compoundExtensions {
		if strings.HasSuffix(lower, suffix) {
			return filename[:len(filename)-len(suffix)], filename[len(filename)-len(suffix)+1:]
		}
	}
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx], filename[idx+1:]
	}
	return filename, ""
}

// CleanFilename normalizes a source filename by removing the site-tag marker
// and the random hash code injected before it.
func CleanFilename(filename string) string {
	stem, ext := SplitExtension(filename)

	stem = hashedSiteTagRe.ReplaceAllString(stem, "")
	stem = siteTagRe.ReplaceAllString(stem, "")
	stem = strings.Trim(strings.ReplaceAll(stem, "_", "-"), "-")

	if ext != "" {
		return stem + "." + ext
	}
	return stem
}

// BuildEpisodeFilename builds a stable storage name from an episode number,
// title, and extension. Persian characters in titles are kept.
func BuildEpisodeFilename(number int, title, extension string) string {
	safe := unsafeTitleRe.ReplaceAllString(title, "")
	safe = strings.ReplaceAll(strings.TrimSpace(safe), " ", "-")
	return fmt.Sprintf("%03d-%s.%s", number, safe, strings.TrimPrefix(extension, "."))
}
