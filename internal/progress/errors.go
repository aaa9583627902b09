package progress

import "errors"

// Errors returned by the progress engine. Check with errors.Is.
var (
	// ErrFetch wraps any failure of a bulk or scoped read during a load.
	ErrFetch = errors.New("fetch failed")

	// ErrWrite wraps a failed insert or update of a status record.
	ErrWrite = errors.New("status write failed")

	// ErrAuthRequired is returned when a status write is attempted
	// without a signed-in user.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAggregation wraps a failed secondary read for the daily
	// progress histogram.
	ErrAggregation = errors.New("daily progress unavailable")

	// ErrUnknownSheet is returned when selecting a sheet that is not
	// loaded.
	ErrUnknownSheet = errors.New("unknown sheet")

	// ErrStopped is returned by Engine calls after the engine has
	// stopped.
	ErrStopped = errors.New("engine stopped")
)
