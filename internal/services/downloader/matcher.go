package downloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"

	"github.com/acmsdev/acms/internal/models"
)

// MatchOutcome is the per-link result of one matcher pass.
type MatchOutcome string

const (
	OutcomeMatched   MatchOutcome = "matched"
	OutcomeCreated   MatchOutcome = "created"
	OutcomeUnmatched MatchOutcome = "unmatched"
	OutcomeDuplicate MatchOutcome = "duplicate"
)

// MatchDetail is the audit-trail entry for a single input link.
type MatchDetail struct {
	URL       string       `json:"url"`
	Result    MatchOutcome `json:"result"`
	EpisodeID uint64       `json:"episode_id,omitempty"`
}

// MatchResult summarizes one matcher invocation over a link batch.
type MatchResult struct {
	Matched    int           `json:"matched"`
	Created    int           `json:"created"`
	Unmatched  int           `json:"unmatched"`
	Duplicates int           `json:"duplicates"`
	Details    []MatchDetail `json:"details"`
}

// Matcher reconciles parsed links against the existing episodes of a course.
type Matcher struct {
	db        *models.Database
	threshold float64
	logger    *logrus.Logger
}

// NewMatcher creates a link matcher. threshold is the minimum fuzzy title
// similarity ratio accepted as a match.
func NewMatcher(db *models.Database, threshold float64, logger *logrus.Logger) *Matcher {
	return &Matcher{db: db, threshold: threshold, logger: logger}
}

// Apply reconciles links against the course's episodes, in input order:
// exact filename match, then episode-number match, then fuzzy title match,
// then create-new for numbered links. With applyChanges false all counts and
// details are computed but nothing is persisted.
func (m *Matcher) Apply(courseID uint64, links []ParsedLink, applyChanges bool) (*MatchResult, error) {
	episodes, err := m.db.GetEpisodesByCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load episodes: %w", err)
	}

	byNumber := make(map[int]*models.Episode)
	byFilename := make(map[string]*models.Episode)
	for _, ep := range episodes {
		if ep.EpisodeNumber != nil {
			byNumber[*ep.EpisodeNumber] = ep
		}
		indexFilenames(byFilename, ep)
	}

	seenURLs := make(map[string]bool)
	result := &MatchResult{}

	for _, link := range links {
		if seenURLs[link.URL] {
			result.Duplicates++
			result.Details = append(result.Details, MatchDetail{URL: link.URL, Result: OutcomeDuplicate})
			continue
		}
		seenURLs[link.URL] = true

		if target := m.matchEpisode(link, episodes, byNumber, byFilename); target != nil {
			result.Matched++
			result.Details = append(result.Details, MatchDetail{URL: link.URL, Result: OutcomeMatched, EpisodeID: target.ID})
			if applyChanges {
				applyLink(target, link)
				if err := m.db.UpdateEpisode(target); err != nil {
					return nil, fmt.Errorf("failed to update episode %d: %w", target.ID, err)
				}
				indexFilenames(byFilename, target)
			}
			continue
		}

		if link.EpisodeNumber == nil {
			result.Unmatched++
			result.Details = append(result.Details, MatchDetail{URL: link.URL, Result: OutcomeUnmatched})
			continue
		}

		result.Created++
		detail := MatchDetail{URL: link.URL, Result: OutcomeCreated}
		if applyChanges {
			episode := models.NewEpisode(courseID)
			episode.EpisodeNumber = link.EpisodeNumber
			episode.TitleEn = link.EpisodeTitle
			episode.HashCode = link.HashCode
			episode.SortOrder = *link.EpisodeNumber
			applyLink(episode, link)
			if err := m.db.CreateEpisode(episode); err != nil {
				return nil, fmt.Errorf("failed to create episode: %w", err)
			}
			detail.EpisodeID = episode.ID

			episodes = append(episodes, episode)
			if _, exists := byNumber[*episode.EpisodeNumber]; !exists {
				byNumber[*episode.EpisodeNumber] = episode
			}
			indexFilenames(byFilename, episode)
		}
		result.Details = append(result.Details, detail)
	}

	return result, nil
}

func (m *Matcher) matchEpisode(link ParsedLink, episodes []*models.Episode, byNumber map[int]*models.Episode, byFilename map[string]*models.Episode) *models.Episode {
	if ep, ok := byFilename[strings.ToLower(link.DecodedFilename)]; ok {
		return ep
	}

	if link.EpisodeNumber != nil {
		// The number is the stronger signal; a title mismatch only changes
		// what we log, never the match.
		if candidate, ok := byNumber[*link.EpisodeNumber]; ok {
			if !titlesEqual(candidate.TitleEn, link.EpisodeTitle) {
				m.logger.WithFields(logrus.Fields{
					"episode_id":   candidate.ID,
					"stored_title": candidate.TitleEn,
					"link_title":   link.EpisodeTitle,
				}).Debug("Episode number matched with differing title")
			}
			return candidate
		}
	}

	if link.EpisodeTitle != "" {
		var best *models.Episode
		bestScore := 0.0
		for _, ep := range episodes {
			if ep.TitleEn == "" {
				continue
			}
			score := titleSimilarity(ep.TitleEn, link.EpisodeTitle)
			if score > bestScore {
				bestScore = score
				best = ep
			}
		}
		if best != nil && bestScore >= m.threshold {
			return best
		}
	}

	return nil
}

// applyLink copies a link's file-type-specific fields onto an episode and
// back-fills identity fields that are still empty. Existing non-empty values
// are never overwritten.
func applyLink(episode *models.Episode, link ParsedLink) {
	switch link.FileType {
	case FileTypeVideo:
		episode.SetAssetLink(models.AssetVideo, link.URL, link.DecodedFilename, "")
	case FileTypeSubtitle:
		episode.SetAssetLink(models.AssetSubtitle, link.URL, link.DecodedFilename, link.SubtitleLang)
	case FileTypeExercise:
		episode.SetAssetLink(models.AssetExercise, link.URL, link.DecodedFilename, "")
	}

	if link.HashCode != "" {
		episode.HashCode = link.HashCode
	}
	if link.EpisodeNumber != nil && episode.EpisodeNumber == nil {
		episode.EpisodeNumber = link.EpisodeNumber
	}
	if link.EpisodeTitle != "" && episode.TitleEn == "" {
		episode.TitleEn = link.EpisodeTitle
	}
	if episode.SortOrder == 0 && link.EpisodeNumber != nil {
		episode.SortOrder = *link.EpisodeNumber
	}
	if strings.HasPrefix(episode.ErrorMessage, ExpiredLinkErrorPrefix) {
		episode.ErrorMessage = ""
	}
}

func indexFilenames(byFilename map[string]*models.Episode, episode *models.Episode) {
	for _, name := range episode.AssetFilenames() {
		byFilename[strings.ToLower(name)] = episode
	}
}

func titlesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// titleSimilarity is a normalized, case-insensitive Levenshtein ratio in
// [0, 1].
func titleSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// MergeDuplicateEpisodes collapses episodes of a course that share the same
// (episode number, normalized title) pair. The record with the most populated
// asset URLs survives, ties broken by lowest ID (earliest created); the
// survivor absorbs any asset URL it lacks before the siblings are deleted.
func (m *Matcher) MergeDuplicateEpisodes(courseID uint64) (int, error) {
	episodes, err := m.db.GetEpisodesByCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to load episodes: %w", err)
	}

	type groupKey struct {
		number int
		title  string
	}
	groups := make(map[groupKey][]*models.Episode)
	for _, ep := range episodes {
		number := -1
		if ep.EpisodeNumber != nil {
			number = *ep.EpisodeNumber
		}
		title := strings.ToLower(strings.TrimSpace(ep.TitleEn))
		if number == -1 && title == "" {
			continue
		}
		key := groupKey{number: number, title: title}
		groups[key] = append(groups[key], ep)
	}

	merged := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		sort.Slice(group, func(i, j int) bool {
			pi, pj := group[i].PopulatedAssetURLs(), group[j].PopulatedAssetURLs()
			if pi != pj {
				return pi > pj
			}
			return group[i].ID < group[j].ID
		})

		survivor := group[0]
		for _, loser := range group[1:] {
			absorbAssets(survivor, loser)
			if err := m.db.DeleteEpisode(loser.ID); err != nil {
				return merged, fmt.Errorf("failed to delete duplicate episode %d: %w", loser.ID, err)
			}
			merged++
		}
		if err := m.db.UpdateEpisode(survivor); err != nil {
			return merged, fmt.Errorf("failed to update surviving episode %d: %w", survivor.ID, err)
		}

		m.logger.WithFields(logrus.Fields{
			"course_id":   courseID,
			"survivor_id": survivor.ID,
			"merged":      len(group) - 1,
		}).Info("Merged duplicate episodes")
	}

	return merged, nil
}

// absorbAssets copies onto the survivor every asset URL it lacks, together
// with the sibling's filename, language, local path, and status for that kind.
func absorbAssets(survivor, loser *models.Episode) {
	if survivor.VideoDownloadURL == "" && loser.VideoDownloadURL != "" {
		survivor.VideoDownloadURL = loser.VideoDownloadURL
		survivor.VideoFilename = loser.VideoFilename
		survivor.VideoLocalPath = loser.VideoLocalPath
		survivor.VideoSize = loser.VideoSize
		survivor.VideoStatus = loser.VideoStatus
	}
	if survivor.SubtitleDownloadURL == "" && loser.SubtitleDownloadURL != "" {
		survivor.SubtitleDownloadURL = loser.SubtitleDownloadURL
		survivor.SubtitleFilename = loser.SubtitleFilename
		survivor.SubtitleLanguage = loser.SubtitleLanguage
		survivor.SubtitleLocalPath = loser.SubtitleLocalPath
		survivor.SubtitleProcessedPath = loser.SubtitleProcessedPath
		survivor.SubtitleStatus = loser.SubtitleStatus
	}
	if survivor.ExerciseDownloadURL == "" && loser.ExerciseDownloadURL != "" {
		survivor.ExerciseDownloadURL = loser.ExerciseDownloadURL
		survivor.ExerciseFilename = loser.ExerciseFilename
		survivor.ExerciseLocalPath = loser.ExerciseLocalPath
		survivor.ExerciseStatus = loser.ExerciseStatus
	}
	if survivor.HashCode == "" {
		survivor.HashCode = loser.HashCode
	}
}
