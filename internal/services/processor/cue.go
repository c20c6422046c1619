package processor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cue is a single timed subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

var timingLineRe = regexp.MustCompile(
	`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)

// ParseCues parses SRT-formatted text into cues. Blocks without a valid
// timing line fail the parse; a stray index line or blank padding does not.
func ParseCues(text string) ([]Cue, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimPrefix(text, "\uFEFF")

	var cues []Cue
	blocks := strings.Split(text, "\n\n")
	for _, block := range blocks {
		lines := splitNonEmpty(block)
		if len(lines) == 0 {
			continue
		}

		// Optional numeric index line before the timing line.
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil && len(lines) > 1 {
			lines = lines[1:]
		}

		m := timingLineRe.FindStringSubmatch(lines[0])
		if m == nil {
			return nil, fmt.Errorf("malformed cue timing line: %q", lines[0])
		}

		start := cueTime(m[1], m[2], m[3], m[4])
		end := cueTime(m[5], m[6], m[7], m[8])
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[1:], "\n"),
		})
	}
	return cues, nil
}

func splitNonEmpty(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func cueTime(hours, minutes, seconds, millis string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	// "5" in the millisecond slot means 500ms, per SRT convention.
	for len(millis) < 3 {
		millis += "0"
	}
	ms, _ := strconv.Atoi(millis)
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}

// ComposeVTT renders cues as a WebVTT document with millisecond-precision
// timestamps. Output is byte-identical for identical input.
func ComposeVTT(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, vttTimestamp(cue.Start), vttTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

func vttTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
