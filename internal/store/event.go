package store

import (
	"fmt"
	"time"

	"github.com/sheettrack/sheettrack/internal/schema"
)

// EventType is the kind of change a ChangeEvent describes.
type EventType string

const (
	// EventInsert indicates a new status record was created.
	EventInsert EventType = "INSERT"
	// EventUpdate indicates an existing status record was modified.
	EventUpdate EventType = "UPDATE"
	// EventDelete indicates a status record was removed.
	EventDelete EventType = "DELETE"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventInsert, EventUpdate, EventDelete:
		return true
	default:
		return false
	}
}

// ChangeEvent is a single change to the user_question_status collection.
//
// New carries the row after the change for inserts and updates. Old
// carries the row before the change for deletes (and, when the store
// knows it, for updates).
type ChangeEvent struct {
	Type EventType            `json:"type"`
	New  *schema.StatusRecord `json:"new,omitempty"`
	Old  *schema.StatusRecord `json:"old,omitempty"`
	At   time.Time            `json:"at"`
}

// Row returns the record the event is keyed by: New for inserts and
// updates, Old for deletes. Returns nil if that row is missing.
func (e ChangeEvent) Row() *schema.StatusRecord {
	if e.Type == EventDelete {
		return e.Old
	}
	return e.New
}

// QuestionID returns the question identifier the event applies to, or ""
// if the keyed row is missing.
func (e ChangeEvent) QuestionID() string {
	if row := e.Row(); row != nil {
		return row.QuestionID
	}
	return ""
}

// UserID returns the owner of the keyed row, or "" if it is missing.
func (e ChangeEvent) UserID() string {
	if row := e.Row(); row != nil {
		return row.UserID
	}
	return ""
}

// String returns a short description for logs.
func (e ChangeEvent) String() string {
	if row := e.Row(); row != nil {
		return fmt.Sprintf("%s %s/%s=%s", e.Type, row.UserID, row.QuestionID, row.Status)
	}
	return fmt.Sprintf("%s <no row>", e.Type)
}
