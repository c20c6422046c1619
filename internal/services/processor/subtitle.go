package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Config controls subtitle processing. The zero value disables everything;
// use DefaultConfig for normal operation.
type Config struct {
	RemoveAds            bool
	AdPatterns           []string
	NormalizePersianText bool
	RemoveHTMLTags       bool
	RenumberEntries      bool
	FixOverlap           bool
	ShiftMs              int
}

// DefaultConfig returns the standard cleaning configuration.
func DefaultConfig() Config {
	return Config{
		RemoveAds: true,
		AdPatterns: []string{
			`git\.ir`,
			`downloaded\s+from`,
			`translat(or|ed)\s+by`,
		},
		NormalizePersianText: true,
		RemoveHTMLTags:       true,
		RenumberEntries:      true,
		FixOverlap:           true,
	}
}

// Result summarizes one processed subtitle file.
type Result struct {
	InputEncoding string
	InputCount    int
	OutputCount   int
	ShiftMs       int
}

// Processor normalizes downloaded subtitle files: decodes unknown encodings,
// strips ads and markup, fixes timing overlaps, applies the configured shift,
// and writes a WebVTT output. Deterministic for identical input bytes and
// configuration.
type Processor struct {
	config     Config
	adPatterns []*regexp.Regexp
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Arabic look-alikes normalized to their Persian forms.
var persianReplacer = strings.NewReplacer(
	"ي", "ی", // Arabic yeh -> Persian yeh
	"ك", "ک", // Arabic kaf -> Persian kaf
)

// NewProcessor compiles the ad patterns and returns a processor.
func NewProcessor(config Config) (*Processor, error) {
	p := &Processor{config: config}
	for _, pattern := range config.AdPatterns {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ad pattern %q: %w", pattern, err)
		}
		p.adPatterns = append(p.adPatterns, re)
	}
	return p, nil
}

// Process reads sourcePath, cleans and shifts its cues, and writes the
// result to destinationPath.
func (p *Processor) Process(sourcePath, destinationPath string) (*Result, error) {
	payload, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle: %w", err)
	}

	text, encodingName := DecodeSubtitle(payload)
	cues, err := ParseCues(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subtitle: %w", err)
	}

	cleaned := p.cleanCues(cues)

	if p.config.FixOverlap {
		fixOverlaps(cleaned)
	}
	if p.config.ShiftMs != 0 {
		shiftCues(cleaned, time.Duration(p.config.ShiftMs)*time.Millisecond)
	}
	if p.config.RenumberEntries {
		for i := range cleaned {
			cleaned[i].Index = i + 1
		}
	}

	if err := os.MkdirAll(filepath.Dir(destinationPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(destinationPath, []byte(ComposeVTT(cleaned)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write processed subtitle: %w", err)
	}

	return &Result{
		InputEncoding: encodingName,
		InputCount:    len(cues),
		OutputCount:   len(cleaned),
		ShiftMs:       p.config.ShiftMs,
	}, nil
}

func (p *Processor) cleanCues(cues []Cue) []Cue {
	var result []Cue
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)

		if p.config.RemoveHTMLTags {
			text = htmlTagRe.ReplaceAllString(text, "")
		}
		if p.config.NormalizePersianText {
			text = persianReplacer.Replace(text)
			text = strings.ReplaceAll(text, "‌‌", "‌")
		}
		text = strings.TrimSpace(text)

		if text == "" {
			continue
		}
		if p.config.RemoveAds && p.isAdvertisement(text) {
			continue
		}

		cue.Text = text
		result = append(result, cue)
	}
	return result
}

func (p *Processor) isAdvertisement(text string) bool {
	for _, re := range p.adPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// fixOverlaps clamps a cue's end to 1ms before the next cue's start when it
// runs past it, but never earlier than the cue's own start.
func fixOverlaps(cues []Cue) {
	for i := 0; i < len(cues)-1; i++ {
		if cues[i].End > cues[i+1].Start {
			adjusted := cues[i+1].Start - time.Millisecond
			if adjusted > cues[i].Start {
				cues[i].End = adjusted
			}
		}
	}
}

// shiftCues moves every cue by the offset, clamping starts at zero and
// keeping each cue at least 1ms long.
func shiftCues(cues []Cue, offset time.Duration) {
	for i := range cues {
		cues[i].Start += offset
		cues[i].End += offset
		if cues[i].Start < 0 {
			cues[i].Start = 0
		}
		if cues[i].End <= cues[i].Start {
			cues[i].End = cues[i].Start + time.Millisecond
		}
	}
}
