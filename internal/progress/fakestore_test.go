package progress

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

var errInjected = errors.New("injected failure")

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeStore is an in-memory RemoteStore with call counting, failure
// injection, and per-user gates that hold ListStatuses.
type fakeStore struct {
	mu        sync.Mutex
	sheets    []schema.Sheet
	questions map[string][]schema.Question
	statuses  map[string]map[string]schema.StatusRecord // user -> question -> record
	calls     map[string]int
	fail      map[string]error
	gates     map[string]chan struct{}

	feed       *store.Feed
	subscribed chan string
	lastSub    store.Subscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions:  make(map[string][]schema.Question),
		statuses:   make(map[string]map[string]schema.StatusRecord),
		calls:      make(map[string]int),
		fail:       make(map[string]error),
		gates:      make(map[string]chan struct{}),
		feed:       store.NewFeed(16, quietLogger()),
		subscribed: make(chan string, 16),
	}
}

func (f *fakeStore) addSheet(sh schema.Sheet, qs ...schema.Question) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets = append(f.sheets, sh)
	for i := range qs {
		qs[i].SheetID = sh.ID
	}
	f.questions[sh.ID] = append(f.questions[sh.ID], qs...)
}

func (f *fakeStore) put(rec schema.StatusRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[rec.UserID] == nil {
		f.statuses[rec.UserID] = make(map[string]schema.StatusRecord)
	}
	f.statuses[rec.UserID][rec.QuestionID] = rec
}

func (f *fakeStore) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

// gate makes ListStatuses for userID wait until the returned channel is
// closed. The records are read before waiting.
func (f *fakeStore) gate(userID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[userID] = ch
	return ch
}

func (f *fakeStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeStore) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeStore) ListSheets(ctx context.Context) ([]schema.Sheet, error) {
	if err := f.enter("ListSheets"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schema.Sheet, len(f.sheets))
	copy(out, f.sheets)
	return out, nil
}

func (f *fakeStore) ListQuestions(ctx context.Context, sheetID string) ([]schema.Question, error) {
	if err := f.enter("ListQuestions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schema.Question, len(f.questions[sheetID]))
	copy(out, f.questions[sheetID])
	return out, nil
}

func (f *fakeStore) ListStatuses(ctx context.Context, userID string) ([]schema.StatusRecord, error) {
	if err := f.enter("ListStatuses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	var out []schema.StatusRecord
	for _, rec := range f.statuses[userID] {
		out = append(out, rec)
	}
	gate := f.gates[userID]
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	if gate != nil {
		<-gate
	}
	return out, nil
}

func (f *fakeStore) ListStatusesFor(ctx context.Context, userID string, questionIDs []string) ([]schema.StatusRecord, error) {
	if err := f.enter("ListStatusesFor"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schema.StatusRecord
	for _, id := range questionIDs {
		if rec, ok := f.statuses[userID][id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStatus(ctx context.Context, userID, questionID string) (*schema.StatusRecord, error) {
	if err := f.enter("GetStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.statuses[userID][questionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) InsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := f.enter("InsertStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	if _, ok := f.statuses[rec.UserID][rec.QuestionID]; ok {
		f.mu.Unlock()
		return store.ErrConflict
	}
	f.mu.Unlock()
	f.put(*rec)
	f.feed.Publish(store.ChangeEvent{Type: store.EventInsert, New: rec, At: rec.LastUpdated})
	return nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := f.enter("UpdateStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	if _, ok := f.statuses[rec.UserID][rec.QuestionID]; !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	f.mu.Unlock()
	f.put(*rec)
	f.feed.Publish(store.ChangeEvent{Type: store.EventUpdate, New: rec, At: rec.LastUpdated})
	return nil
}

func (f *fakeStore) Subscribe(ctx context.Context, userID string) (store.Subscription, error) {
	if err := f.enter("Subscribe"); err != nil {
		return nil, err
	}
	sub, err := f.feed.Subscribe(ctx, userID)
	if err == nil {
		f.mu.Lock()
		f.lastSub = sub
		f.mu.Unlock()
		f.subscribed <- userID
	}
	return sub, err
}

// upsertStore adds the atomic upsert capability to fakeStore.
type upsertStore struct {
	*fakeStore
}

func (u upsertStore) UpsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := u.enter("UpsertStatus"); err != nil {
		return err
	}
	u.put(*rec)
	u.feed.Publish(store.ChangeEvent{Type: store.EventUpdate, New: rec, At: rec.LastUpdated})
	return nil
}

// seedTwoSheets builds the fixture used across the package tests:
// sheet s1 with q1..q3 (arrays, arrays, graphs), sheet s2 with q4..q5
// (graphs, dp).
func seedTwoSheets(f *fakeStore) {
	f.addSheet(schema.Sheet{ID: "s1", Name: "Blind 75", TotalQuestions: 3},
		schema.Question{ID: "q1", Title: "Two Sum", Difficulty: schema.DifficultyEasy, Topic: "arrays"},
		schema.Question{ID: "q2", Title: "3Sum", Difficulty: schema.DifficultyMedium, Topic: "arrays"},
		schema.Question{ID: "q3", Title: "Clone Graph", Difficulty: schema.DifficultyMedium, Topic: "graphs"},
	)
	f.addSheet(schema.Sheet{ID: "s2", Name: "Grind", TotalQuestions: 2},
		schema.Question{ID: "q4", Title: "Course Schedule", Difficulty: schema.DifficultyMedium, Topic: "graphs"},
		schema.Question{ID: "q5", Title: "Climbing Stairs", Difficulty: schema.DifficultyEasy, Topic: "dp"},
	)
}
