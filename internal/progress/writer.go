package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// Writer persists status changes to the remote store and applies them to
// the cache once the store has confirmed them.
type Writer struct {
	store    store.RemoteStore
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewWriter creates a Writer for st that reports outcomes to n.
// A nil notifier discards outcomes. If logger is nil, a default logger
// writing to stderr is used.
func NewWriter(st store.RemoteStore, n Notifier, logger *log.Logger) *Writer {
	if n == nil {
		n = discardNotifier{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[writer] ", log.LstdFlags)
	}
	return &Writer{
		store:    st,
		notifier: n,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Write performs the remote half of a status change and returns the
// confirmed record.
//
// Without an authenticated identity it returns ErrAuthRequired and makes
// no remote call. If the store implements store.Upserter the record is
// written atomically; otherwise the existing record is looked up and
// either updated or inserted. Remote failures are wrapped in ErrWrite.
// Write never touches a Cache.
func (w *Writer) Write(ctx context.Context, id identity.Identity, questionID string, status schema.Status) (*schema.StatusRecord, error) {
	if !id.Authenticated() {
		return nil, ErrAuthRequired
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrWrite, status)
	}
	if questionID == "" {
		return nil, fmt.Errorf("%w: question id is required", ErrWrite)
	}

	rec := &schema.StatusRecord{
		UserID:      id.UserID,
		QuestionID:  questionID,
		Status:      status,
		LastUpdated: w.now(),
	}

	if up, ok := w.store.(store.Upserter); ok {
		if err := up.UpsertStatus(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		return rec, nil
	}

	// Check-then-branch is not atomic: a concurrent writer can slip in
	// between the read and the insert, which then fails with a conflict.
	existing, err := w.store.GetStatus(ctx, id.UserID, questionID)
	switch {
	case err == nil:
		rec.ID = existing.ID
		if err := w.store.UpdateStatus(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	case errors.Is(err, store.ErrNotFound):
		rec.ID = uuid.NewString()
		if err := w.store.InsertStatus(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return rec, nil
}

// Apply settles a Write: on success it sets the confirmed status in c;
// on failure it leaves c untouched. Either way it builds the Outcome,
// sends it to the notifier, and returns it. A nil c reports the outcome
// without touching any cache.
func (w *Writer) Apply(c *Cache, questionID string, rec *schema.StatusRecord, err error) Outcome {
	var o Outcome
	switch {
	case errors.Is(err, ErrAuthRequired):
		o = Outcome{
			Title:       "Authentication required",
			Description: "Please log in to update question status",
			Severity:    SeverityDestructive,
		}

	case err != nil:
		w.logger.Printf("Error updating question status: %v", err)
		o = Outcome{
			Title:       "Failed to update status",
			Description: err.Error(),
			Severity:    SeverityDestructive,
		}

	default:
		description := questionID
		if c != nil {
			c.SetStatus(rec.QuestionID, StatusEntry{Status: rec.Status, LastUpdated: rec.LastUpdated})
			if q, ok := c.FindQuestion(questionID); ok {
				description = q.Title
			}
		}
		o = Outcome{Title: rec.Status.Phrase(), Description: description, Severity: SeverityInfo}
		w.logger.Printf("Status of %s set to %s", questionID, rec.Status)
	}

	w.notifier.Notify(o)
	return o
}

// UpdateStatus is Write followed by Apply, for callers that own c on the
// current goroutine.
func (w *Writer) UpdateStatus(ctx context.Context, c *Cache, id identity.Identity, questionID string, status schema.Status) (Outcome, error) {
	rec, err := w.Write(ctx, id, questionID, status)
	return w.Apply(c, questionID, rec, err), err
}
