package store

import "errors"

// Common errors returned by RemoteStore implementations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // no record yet, insert one
//	}
var (
	// ErrNotFound is returned by single-row reads and updates when the
	// record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by InsertStatus when a record already exists
	// for the same (user, question).
	ErrConflict = errors.New("record already exists")

	// ErrClosed is returned when operating on a closed store or
	// subscription.
	ErrClosed = errors.New("store closed")
)
