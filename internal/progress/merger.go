package progress

import (
	"log"
	"os"

	"github.com/sheettrack/sheettrack/internal/store"
)

// Merger applies live change events to a Cache.
//
// Events are applied unconditionally in arrival order: the last event for
// a question wins, and the event's timestamp is never compared with the
// cached one. Applying the same event twice leaves the cache as applying
// it once.
type Merger struct {
	logger *log.Logger
}

// NewMerger creates a Merger.
// If logger is nil, a default logger writing to stderr is used.
func NewMerger(logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.New(os.Stderr, "[merger] ", log.LstdFlags)
	}
	return &Merger{logger: logger}
}

// Apply merges ev into c and reports whether the cache changed.
//
// INSERT and UPDATE set the entry for the new row's question; DELETE
// removes the entry for the old row's question. Malformed events are
// logged and ignored.
func (m *Merger) Apply(c *Cache, ev store.ChangeEvent) bool {
	row := ev.Row()
	if row == nil || row.QuestionID == "" {
		m.logger.Printf("WARNING: ignoring %s event without a row", ev.Type)
		return false
	}

	switch ev.Type {
	case store.EventInsert, store.EventUpdate:
		if !row.Status.Valid() {
			m.logger.Printf("WARNING: ignoring %s with invalid status %q", ev.Type, row.Status)
			return false
		}
		return c.SetStatus(row.QuestionID, StatusEntry{Status: row.Status, LastUpdated: row.LastUpdated})

	case store.EventDelete:
		return c.DeleteStatus(row.QuestionID)

	default:
		m.logger.Printf("WARNING: ignoring unknown event type %q", ev.Type)
		return false
	}
}
