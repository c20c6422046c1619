package models

import "time"

// LinkBatch records one bulk-paste submission of raw link text for a course.
// The token/hash of the first parsed link identify the signed link generation
// the batch belongs to.
type LinkBatch struct {
	ID       uint64 `boltholdKey:"ID"`
	CourseID uint64 `boltholdIndex:"CourseID"`

	RawLinks    string
	Token       string
	Hash        string
	CourseAPIID string
	IsActive    bool

	CreatedAt time.Time
}
