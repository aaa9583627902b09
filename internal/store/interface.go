// Package store defines the remote store contract the progress engine
// reads from, writes to, and subscribes to.
package store

import (
	"context"

	"github.com/sheettrack/sheettrack/internal/schema"
)

// RemoteStore is the authoritative store for sheets, questions, and
// per-user question statuses.
//
// Implementations must be safe for concurrent use. Every call may block
// on I/O and must honor ctx cancellation.
type RemoteStore interface {
	// ListSheets returns every sheet, in a stable order.
	ListSheets(ctx context.Context) ([]schema.Sheet, error)

	// ListQuestions returns the questions whose sheet_id equals sheetID.
	// Returns an empty slice (not an error) for an unknown sheet.
	ListQuestions(ctx context.Context, sheetID string) ([]schema.Question, error)

	// ListStatuses returns every status record owned by userID.
	ListStatuses(ctx context.Context, userID string) ([]schema.StatusRecord, error)

	// ListStatusesFor returns userID's status records restricted to the
	// given question IDs. Unknown IDs are skipped.
	ListStatusesFor(ctx context.Context, userID string, questionIDs []string) ([]schema.StatusRecord, error)

	// GetStatus returns the single record for (userID, questionID).
	// Returns ErrNotFound if no record exists.
	GetStatus(ctx context.Context, userID, questionID string) (*schema.StatusRecord, error)

	// InsertStatus creates a new record. It fails if one already exists
	// for the same (user, question).
	InsertStatus(ctx context.Context, rec *schema.StatusRecord) error

	// UpdateStatus overwrites the status and last_updated of an existing
	// record. Returns ErrNotFound if there is none.
	UpdateStatus(ctx context.Context, rec *schema.StatusRecord) error

	// Subscribe opens a live feed of status changes for userID.
	//
	// Events are delivered in the order the store applied them. The
	// subscription stays open until Close is called or ctx is done.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Upserter is implemented by stores that can insert-or-update a status
// record atomically. Writers should prefer it over GetStatus followed by
// InsertStatus/UpdateStatus, which races against concurrent writers.
type Upserter interface {
	UpsertStatus(ctx context.Context, rec *schema.StatusRecord) error
}

// Admin is the seeding and maintenance surface of a store. The progress
// engine never uses it.
type Admin interface {
	PutSheet(ctx context.Context, sheet *schema.Sheet) error
	PutQuestion(ctx context.Context, q *schema.Question) error
	DeleteStatus(ctx context.Context, userID, questionID string) error
}

// Subscription is a live stream of ChangeEvents.
type Subscription interface {
	// Events returns the channel of change events. It is closed when the
	// subscription ends.
	Events() <-chan ChangeEvent

	// Errors returns transport errors. It is closed when the
	// subscription ends.
	Errors() <-chan error

	// Close ends the subscription. It is safe to call more than once.
	Close() error
}
