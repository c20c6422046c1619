package downloader

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// FileType classifies a parsed link by the asset it carries.
type FileType string

const (
	FileTypeVideo    FileType = "video"
	FileTypeSubtitle FileType = "subtitle"
	FileTypeExercise FileType = "exercise"
	FileTypeUnknown  FileType = "unknown"
)

// ParsedLink is the structured form of one URL from a bulk link paste.
// Produced fresh per parse call and never mutated afterwards.
type ParsedLink struct {
	URL             string
	Filename        string
	DecodedFilename string
	EpisodeNumber   *int
	EpisodeTitle    string
	HashCode        string
	FileType        FileType
	SubtitleLang    string
	Token           string
	Hash            string
	CourseAPIID     string
}

var (
	fileURLRe  = regexp.MustCompile(`(?i)https?://\S+`)
	episodeRe  = regexp.MustCompile(`^(\d{1,3})[-_\s]+(.+)$`)
	hashCodeRe = regexp.MustCompile(`(?i)-([A-Za-z0-9]{4})-git\.ir`)

	directAPIIDRe  = regexp.MustCompile(`(?i)/get-download-links/([a-z0-9]{4,10})/?`)
	segmentAPIIDRe = regexp.MustCompile(`(?i)^[a-z0-9]{4,10}$`)
)

// ParseBulkLinks extracts every recognizable URL from raw pasted text and
// parses each into a ParsedLink, preserving input order. Text with no
// recognizable URLs yields an empty list.
func ParseBulkLinks(raw string) []ParsedLink {
	normalized := strings.ReplaceAll(raw, "&amp;", "&")
	var parsed []ParsedLink
	for _, link := range fileURLRe.FindAllString(normalized, -1) {
		if item, ok := ParseLink(link); ok {
			parsed = append(parsed, item)
		}
	}
	return parsed
}

// ParseLink parses a single URL. Returns false when no filename can be
// determined, in which case the link is skipped.
func ParseLink(link string) (ParsedLink, bool) {
	link = strings.ReplaceAll(link, "&amp;", "&")

	parsedURL, err := url.Parse(link)
	if err != nil {
		return ParsedLink{}, false
	}
	query := parsedURL.Query()

	filename := firstValue(query, "filename", "file", "name")
	if filename != "" {
		filename = path.Base(decode(filename))
	} else {
		filename = path.Base(decode(parsedURL.EscapedPath()))
	}
	if filename == "" || filename == "." || filename == "/" {
		return ParsedLink{}, false
	}

	decodedFilename := decode(filename)
	fileType, subtitleLang := detectFileType(decodedFilename)
	episodeNumber, episodeTitle := extractEpisodeInfo(decodedFilename)

	hashCode := ""
	if m := hashCodeRe.FindStringSubmatch(decodedFilename); m != nil {
		hashCode = m[1]
	}

	return ParsedLink{
		URL:             link,
		Filename:        filename,
		DecodedFilename: decodedFilename,
		EpisodeNumber:   episodeNumber,
		EpisodeTitle:    episodeTitle,
		HashCode:        hashCode,
		FileType:        fileType,
		SubtitleLang:    subtitleLang,
		Token:           firstValue(query, "token", "t"),
		Hash:            firstValue(query, "hash", "h"),
		CourseAPIID:     extractCourseAPIID(parsedURL.Path, query),
	}, true
}

func detectFileType(filename string) (FileType, string) {
	lower := strings.ToLower(filename)

	switch {
	case strings.HasSuffix(lower, ".fa.srt"):
		return FileTypeSubtitle, "fa"
	case strings.HasSuffix(lower, ".en.srt"):
		return FileTypeSubtitle, "en"
	case strings.HasSuffix(lower, ".srt"):
		return FileTypeSubtitle, ""
	}

	for _, suffix := range []string{".zip", ".rar", ".7z", ".pdf"} {
		if strings.HasSuffix(lower, suffix) {
			return FileTypeExercise, ""
		}
	}
	for _, suffix := range []string{".mp4", ".mkv", ".avi", ".mov"} {
		if strings.HasSuffix(lower, suffix) {
			return FileTypeVideo, ""
		}
	}

	return FileTypeUnknown, ""
}

var knownSuffixes = []string{
	".fa.srt", ".en.srt", ".srt",
	".mp4", ".mkv", ".avi", ".mov",
	".zip", ".rar", ".7z", ".pdf",
}

func extractEpisodeInfo(filename string) (*int, string) {
	stem := filename
	lower := strings.ToLower(filename)
	for _, suffix := range knownSuffixes {
		if strings.HasSuffix(lower, suffix) {
			stem = stem[:len(stem)-len(suffix)]
			break
		}
	}

	stem = hashedSiteTagRe.ReplaceAllString(stem, "")
	stem = siteTagRe.ReplaceAllString(stem, "")

	m := episodeRe.FindStringSubmatch(stem)
	if m == nil {
		return nil, ""
	}

	number, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, ""
	}
	title := strings.ReplaceAll(m[2], "-", " ")
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	return &number, title
}

var (
	hashedSiteTagRe = regexp.MustCompile(`(?i)-[A-Za-z0-9]{4}-git\.ir$`)
	siteTagRe       = regexp.MustCompile(`(?i)-git\.ir$`)
)

func extractCourseAPIID(urlPath string, query url.Values) string {
	for _, key := range []string{"course_id", "id"} {
		if value := firstValue(query, key); value != "" {
			return value
		}
	}

	if m := directAPIIDRe.FindStringSubmatch(urlPath); m != nil {
		return m[1]
	}

	segments := strings.Split(urlPath, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" && segmentAPIIDRe.MatchString(segments[i]) {
			return segments[i]
		}
	}
	return ""
}

func firstValue(query url.Values, keys ...string) string {
	for _, key := range keys {
		if values, ok := query[key]; ok && len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

func decode(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}
