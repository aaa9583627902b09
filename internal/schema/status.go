package schema

import (
	"fmt"
	"strings"
	"time"
)

// Status describes a user's progress on a question.
type Status string

const (
	StatusTodo      Status = "todo"
	StatusRedo      Status = "redo"
	StatusRevision  Status = "revision"
	StatusCompleted Status = "completed"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusCompleted, StatusRevision, StatusRedo, StatusTodo}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusRedo, StatusRevision, StatusCompleted:
		return true
	default:
		return false
	}
}

// Phrase returns the human-readable wording used when a question is moved
// into this status.
func (s Status) Phrase() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusRevision:
		return "Marked for revision"
	case StatusRedo:
		return "Marked to do again"
	default:
		return "Added to todo"
	}
}

// ParseStatus converts a string to a Status, ignoring case and surrounding
// whitespace.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q (must be todo, redo, revision or completed)", s)
	}
	return st, nil
}

// StatusRecord is a user's status for one question.
// There is at most one record per (UserID, QuestionID).
type StatusRecord struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	QuestionID  string    `json:"question_id"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// Validate checks if the StatusRecord has valid field values.
func (r *StatusRecord) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.QuestionID == "" {
		return fmt.Errorf("question_id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	if r.LastUpdated.IsZero() {
		return fmt.Errorf("last_updated is required")
	}
	return nil
}

// Touch sets LastUpdated to the current time.
// This should be called whenever Status is modified.
func (r *StatusRecord) Touch() {
	r.LastUpdated = time.Now().UTC()
}
