package models

import "time"

// Course represents one scraped third-party course and its download state
type Course struct {
	ID uint64 `boltholdKey:"ID"`

	SourceURL  string `boltholdIndex:"SourceURL"`
	Slug       string
	TitleEn    string
	TitleFa    string
	Instructor string
	Category   string
	Language   string

	Status    CourseStatus `boltholdIndex:"Status"`
	DebugMode bool

	// Link-expiry signal, course-wide. Set the first time any asset download
	// for this course fails with an expired tokenized link; cleared when a
	// later link batch matches or creates at least one episode asset.
	LinksExpired   bool
	LinksExpiredAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkLinksExpired sets the expiry flag. Returns true only the first time the
// flag flips, so callers can raise the expiry warning exactly once.
func (c *Course) MarkLinksExpired() bool {
	if c.LinksExpired {
		return false
	}
	now := time.Now().UTC()
	c.LinksExpired = true
	c.LinksExpiredAt = &now
	return true
}

// ClearLinksExpired removes the expiry flag. Returns true if anything changed.
func (c *Course) ClearLinksExpired() bool {
	if !c.LinksExpired && c.LinksExpiredAt == nil {
		return false
	}
	c.LinksExpired = false
	c.LinksExpiredAt = nil
	return true
}
