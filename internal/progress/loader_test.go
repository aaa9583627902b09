package progress

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
)

func TestLoaderLoad(t *testing.T) {
	fs := newFakeStore()
	seedTwoSheets(fs)
	fs.put(schema.StatusRecord{UserID: "alice", QuestionID: "q1", Status: schema.StatusCompleted, LastUpdated: time.Now()})
	fs.put(schema.StatusRecord{UserID: "bob", QuestionID: "q2", Status: schema.StatusRedo, LastUpdated: time.Now()})

	l := NewLoader(fs, quietLogger())
	snap, err := l.Load(context.Background(), identity.Identity{UserID: "alice"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(snap.Sheets) != 2 {
		t.Errorf("len(Sheets) = %d, want 2", len(snap.Sheets))
	}
	if len(snap.Questions["s1"]) != 3 || len(snap.Questions["s2"]) != 2 {
		t.Errorf("questions = %d/%d, want 3/2", len(snap.Questions["s1"]), len(snap.Questions["s2"]))
	}
	if len(snap.Statuses) != 1 || snap.Statuses["q1"].Status != schema.StatusCompleted {
		t.Errorf("Statuses = %+v, want only alice's q1", snap.Statuses)
	}
	if fs.count("ListQuestions") != 2 {
		t.Errorf("ListQuestions called %d times, want 2", fs.count("ListQuestions"))
	}
}

func TestLoaderAnonymousSkipsStatuses(t *testing.T) {
	fs := newFakeStore()
	seedTwoSheets(fs)

	l := NewLoader(fs, quietLogger())
	snap, err := l.Load(context.Background(), identity.Anonymous)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(snap.Statuses) != 0 {
		t.Errorf("anonymous load returned %d statuses", len(snap.Statuses))
	}
	if fs.count("ListStatuses") != 0 {
		t.Error("anonymous load should not fetch statuses")
	}
}

func TestLoaderFailures(t *testing.T) {
	for _, method := range []string{"ListSheets", "ListQuestions", "ListStatuses"} {
		t.Run(method, func(t *testing.T) {
			fs := newFakeStore()
			seedTwoSheets(fs)
			fs.setFail(method, errInjected)

			c := NewCache()
			c.Replace(testSnapshot())

			l := NewLoader(fs, quietLogger())
			err := l.Reload(context.Background(), c, identity.Identity{UserID: "alice"})
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("Reload() error = %v, want ErrFetch", err)
			}
			if !strings.Contains(c.Err(), errInjected.Error()) {
				t.Errorf("cache Err() = %q, want it to mention the cause", c.Err())
			}
			if c.Loading() {
				t.Error("cache still loading after failure")
			}
			// Previous contents survive a failed load.
			if c.StatusOf("q1") != schema.StatusCompleted {
				t.Error("failed load replaced cached statuses")
			}
		})
	}
}

func TestLoaderReloadReplaces(t *testing.T) {
	fs := newFakeStore()
	seedTwoSheets(fs)

	c := NewCache()
	c.Replace(testSnapshot())
	c.FailLoad(errors.New("old failure"))

	l := NewLoader(fs, quietLogger())
	if err := l.Reload(context.Background(), c, identity.Identity{UserID: "alice"}); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if c.Err() != "" {
		t.Errorf("Err() = %q, want cleared", c.Err())
	}
	if c.StatusCount() != 0 {
		t.Errorf("StatusCount() = %d, want 0 (alice has no records)", c.StatusCount())
	}
	if c.ActiveSheet() != "s1" {
		t.Errorf("ActiveSheet() = %q, want s1", c.ActiveSheet())
	}
}
