package progress

import (
	"sort"
	"time"

	"github.com/sheettrack/sheettrack/internal/schema"
)

// StatusEntry is the cached status of one question.
type StatusEntry struct {
	Status      schema.Status
	LastUpdated time.Time
}

// Snapshot is the result of a Loader run: the full replacement for the
// cache's sheets, questions, and statuses.
type Snapshot struct {
	Sheets    []schema.Sheet
	Questions map[string][]schema.Question // by sheet id
	Statuses  map[string]StatusEntry       // by question id
}

// Cache is the last-known-good local copy of sheets, questions, and the
// current user's statuses.
//
// A Cache is not safe for concurrent use. Engine confines it to a single
// goroutine; direct users must do the same.
type Cache struct {
	sheets    []schema.Sheet
	questions map[string][]schema.Question
	statuses  map[string]StatusEntry
	active    string
	loading   bool
	err       string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		questions: make(map[string][]schema.Question),
		statuses:  make(map[string]StatusEntry),
	}
}

// BeginLoad marks a load as in progress.
func (c *Cache) BeginLoad() {
	c.loading = true
}

// Replace swaps in snap wholesale, clears any recorded error, ends the
// load, and resets the active sheet to the first loaded sheet.
func (c *Cache) Replace(snap *Snapshot) {
	c.sheets = snap.Sheets
	c.questions = snap.Questions
	c.statuses = snap.Statuses
	if c.questions == nil {
		c.questions = make(map[string][]schema.Question)
	}
	if c.statuses == nil {
		c.statuses = make(map[string]StatusEntry)
	}

	c.active = ""
	if len(c.sheets) > 0 {
		c.active = c.sheets[0].ID
	}
	c.loading = false
	c.err = ""
}

// FailLoad ends the load and records err, keeping the previous contents.
func (c *Cache) FailLoad(err error) {
	c.loading = false
	if err != nil {
		c.err = err.Error()
	}
	if c.err == "" {
		c.err = "an error occurred while fetching data"
	}
}

// SetStatus sets (or overwrites) the entry for questionID.
// It reports whether the cache changed.
func (c *Cache) SetStatus(questionID string, entry StatusEntry) bool {
	if cur, ok := c.statuses[questionID]; ok && cur == entry {
		return false
	}
	c.statuses[questionID] = entry
	return true
}

// DeleteStatus removes the entry for questionID. Removing an absent entry
// is a no-op. It reports whether the cache changed.
func (c *Cache) DeleteStatus(questionID string) bool {
	if _, ok := c.statuses[questionID]; !ok {
		return false
	}
	delete(c.statuses, questionID)
	return true
}

// SetActiveSheet points the active sheet at sheetID.
func (c *Cache) SetActiveSheet(sheetID string) error {
	for _, sh := range c.sheets {
		if sh.ID == sheetID {
			c.active = sheetID
			return nil
		}
	}
	return ErrUnknownSheet
}

// Sheets returns the loaded sheets in load order.
func (c *Cache) Sheets() []schema.Sheet {
	out := make([]schema.Sheet, len(c.sheets))
	copy(out, c.sheets)
	return out
}

// Questions returns the loaded questions of a sheet.
func (c *Cache) Questions(sheetID string) []schema.Question {
	qs := c.questions[sheetID]
	out := make([]schema.Question, len(qs))
	copy(out, qs)
	return out
}

// Status returns the cached entry for questionID, if any.
func (c *Cache) Status(questionID string) (StatusEntry, bool) {
	e, ok := c.statuses[questionID]
	return e, ok
}

// StatusOf returns the effective status of questionID: the cached status,
// or todo when there is none.
func (c *Cache) StatusOf(questionID string) schema.Status {
	if e, ok := c.statuses[questionID]; ok {
		return e.Status
	}
	return schema.StatusTodo
}

// QuestionsWithStatus joins a sheet's questions with their effective
// statuses.
func (c *Cache) QuestionsWithStatus(sheetID string) []schema.QuestionWithStatus {
	qs := c.questions[sheetID]
	out := make([]schema.QuestionWithStatus, 0, len(qs))
	for _, q := range qs {
		out = append(out, schema.QuestionWithStatus{Question: q, Status: c.StatusOf(q.ID)})
	}
	return out
}

// FindQuestion looks a question up across all loaded sheets.
func (c *Cache) FindQuestion(questionID string) (schema.Question, bool) {
	for _, sh := range c.sheets {
		for _, q := range c.questions[sh.ID] {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return schema.Question{}, false
}

// CompletedQuestionIDs returns the ids of every cached entry whose status
// is completed, sorted. Entries for questions outside the loaded sheets
// are included.
func (c *Cache) CompletedQuestionIDs() []string {
	var ids []string
	for id, e := range c.statuses {
		if e.Status == schema.StatusCompleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// StatusCount returns the number of cached status entries.
func (c *Cache) StatusCount() int {
	return len(c.statuses)
}

// ActiveSheet returns the active sheet id, or "" if none.
func (c *Cache) ActiveSheet() string { return c.active }

// Loading reports whether a load is in progress.
func (c *Cache) Loading() bool { return c.loading }

// Err returns the description of the last failed load, or "".
func (c *Cache) Err() string { return c.err }
