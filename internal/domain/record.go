package domain

import (
	"net/url"
	"strings"
	"time"
)

// RecordStatus is the moderation state of a record.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordApproved RecordStatus = "approved"
	RecordRejected RecordStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordPending, RecordApproved, RecordRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a review may move a record from s to next.
// Only pending records can be reviewed; approved and rejected are terminal
// (approved records can still be deleted).
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	return s == RecordPending && (next == RecordApproved || next == RecordRejected)
}

// CompletionDelta is the change to the demon's completion counter when a
// record in state s is removed.
func (s RecordStatus) CompletionDelta() int {
	if s == RecordApproved {
		return 1
	}
	return 0
}

// Record is a player's completion submission.
type Record struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	DemonID     string       `json:"demon_id"`
	VideoURL    string       `json:"video_url"`
	Status      RecordStatus `json:"status"`
	SubmittedAt time.Time    `json:"submitted_at"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy  *string      `json:"reviewed_by,omitempty"`
}

// RecordDetail is a record joined with its owner and target demon.
type RecordDetail struct {
	Record
	User  UserSummary   `json:"user"`
	Demon *DemonSummary `json:"demon,omitempty"`
}

// RecordSubmission is the player-supplied shape for a new record.
type RecordSubmission struct {
	UserID   string `json:"user_id,omitempty"`
	DemonID  string `json:"demon_id"`
	VideoURL string `json:"video_url"`
}

// Validate checks the submission shape.
func (s *RecordSubmission) Validate() error {
	s.DemonID = strings.TrimSpace(s.DemonID)
	s.VideoURL = strings.TrimSpace(s.VideoURL)
	if s.DemonID == "" {
		return Invalid("demon_id", "is required")
	}
	if s.VideoURL == "" {
		return Invalid("video_url", "is required")
	}
	u, err := url.Parse(s.VideoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Invalid("video_url", "must be a valid URL")
	}
	return nil
}
