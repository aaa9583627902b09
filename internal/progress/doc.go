// Package progress keeps a local cache of practice sheets and a user's
// question statuses in sync with a remote store, and computes statistics
// over that cache.
//
// # Architecture
//
//	identity.Provider ──┐
//	                    ▼
//	RemoteStore ──► Loader ──────► ┌────────┐
//	            ──► Merger (feed) ─► │ Cache  │ ──► SheetStatistics
//	            ◄─► Writer ────────► └────────┘ ──► TopicStatistics
//	                                           ──► DailyProgress (+ store)
//
// The pieces can be used directly, or through Engine, which owns a Cache
// and serializes every mutation on one goroutine:
//
//   - Loader replaces the cache wholesale on start-up, on every identity
//     transition, and on Refresh.
//   - Merger applies live change events for the signed-in user,
//     last-write-wins per question in arrival order.
//   - Writer persists a status change remotely and, once confirmed,
//     applies it to the cache and reports an Outcome.
//   - The statistics functions are pure over the cache and recomputed
//     on every call.
//
// # Usage
//
//	eng := progress.NewEngine(st, identity.Static{UserID: "alice"}, nil)
//	go eng.Run(ctx)
//	if err := eng.WaitIdle(ctx); err != nil {
//	    return err
//	}
//	outcome, err := eng.UpdateStatus(ctx, "two-sum", schema.StatusCompleted)
//	stats, err := eng.SheetStatistics(ctx)
//
// # Stale Responses
//
// Every Loader run is stamped with a generation. When a newer run starts
// the older one is cancelled, and if its result still arrives it is
// discarded. A write confirmed while a load is in flight is re-applied on
// top of that load's snapshot, so a slow load cannot roll it back.
//
// # Error Handling
//
// No error is fatal. A failed load keeps the previous cache and records
// the failure in State().Err. A failed write leaves the cache untouched
// and emits a failure Outcome. A failed histogram fetch returns the
// zero-filled window together with an error wrapping ErrAggregation.
package progress
