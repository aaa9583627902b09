package progress

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// Loader performs the bulk fetch that populates a Cache.
type Loader struct {
	store  store.RemoteStore
	logger *log.Logger
}

// NewLoader creates a Loader reading from st.
// If logger is nil, a default logger writing to stderr is used.
func NewLoader(st store.RemoteStore, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(os.Stderr, "[loader] ", log.LstdFlags)
	}
	return &Loader{store: st, logger: logger}
}

// Load fetches every sheet, then each sheet's questions, then (only when
// id is authenticated) the user's statuses indexed by question id.
//
// Any failure aborts the whole run with an error wrapping ErrFetch; no
// partial snapshot is returned. Load never touches a Cache itself: apply
// the result with Cache.Replace, or record the failure with
// Cache.FailLoad.
func (l *Loader) Load(ctx context.Context, id identity.Identity) (*Snapshot, error) {
	sheets, err := l.store.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: sheets: %v", ErrFetch, err)
	}

	snap := &Snapshot{
		Sheets:    sheets,
		Questions: make(map[string][]schema.Question, len(sheets)),
		Statuses:  make(map[string]StatusEntry),
	}

	questionCount := 0
	for _, sh := range sheets {
		qs, err := l.store.ListQuestions(ctx, sh.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: questions for sheet %s: %v", ErrFetch, sh.ID, err)
		}
		snap.Questions[sh.ID] = qs
		questionCount += len(qs)
	}

	if id.Authenticated() {
		recs, err := l.store.ListStatuses(ctx, id.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: statuses for %s: %v", ErrFetch, id.UserID, err)
		}
		for _, rec := range recs {
			snap.Statuses[rec.QuestionID] = StatusEntry{Status: rec.Status, LastUpdated: rec.LastUpdated}
		}
	}

	l.logger.Printf("Loaded %d sheets, %d questions, %d statuses for %s",
		len(sheets), questionCount, len(snap.Statuses), id)
	return snap, nil
}

// Reload runs Load and applies the outcome to c: Replace on success,
// FailLoad on failure. It is the synchronous form used outside Engine.
func (l *Loader) Reload(ctx context.Context, c *Cache, id identity.Identity) error {
	c.BeginLoad()
	snap, err := l.Load(ctx, id)
	if err != nil {
		l.logger.Printf("Error fetching data: %v", err)
		c.FailLoad(err)
		return err
	}
	c.Replace(snap)
	return nil
}
