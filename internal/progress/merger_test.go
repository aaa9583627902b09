package progress

import (
	"testing"
	"time"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

func statusEvent(typ store.EventType, qid string, status schema.Status, at time.Time) store.ChangeEvent {
	rec := &schema.StatusRecord{UserID: "alice", QuestionID: qid, Status: status, LastUpdated: at}
	if typ == store.EventDelete {
		return store.ChangeEvent{Type: typ, Old: rec, At: at}
	}
	return store.ChangeEvent{Type: typ, New: rec, At: at}
}

func TestMergerApply(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []store.ChangeEvent
		want   schema.Status
		cached bool
	}{
		{
			name:   "insert",
			events: []store.ChangeEvent{statusEvent(store.EventInsert, "q1", schema.StatusCompleted, t0)},
			want:   schema.StatusCompleted,
			cached: true,
		},
		{
			name: "update overwrites",
			events: []store.ChangeEvent{
				statusEvent(store.EventInsert, "q1", schema.StatusRedo, t0),
				statusEvent(store.EventUpdate, "q1", schema.StatusRevision, t0.Add(time.Minute)),
			},
			want:   schema.StatusRevision,
			cached: true,
		},
		{
			name: "last event wins even with an older timestamp",
			events: []store.ChangeEvent{
				statusEvent(store.EventUpdate, "q1", schema.StatusCompleted, t0.Add(time.Hour)),
				statusEvent(store.EventUpdate, "q1", schema.StatusRedo, t0),
			},
			want:   schema.StatusRedo,
			cached: true,
		},
		{
			name: "delete removes",
			events: []store.ChangeEvent{
				statusEvent(store.EventInsert, "q1", schema.StatusCompleted, t0),
				statusEvent(store.EventDelete, "q1", schema.StatusCompleted, t0),
			},
			want:   schema.StatusTodo,
			cached: false,
		},
		{
			name:   "delete of absent key",
			events: []store.ChangeEvent{statusEvent(store.EventDelete, "q1", schema.StatusCompleted, t0)},
			want:   schema.StatusTodo,
			cached: false,
		},
		{
			name: "malformed events ignored",
			events: []store.ChangeEvent{
				{Type: store.EventInsert},
				{Type: "TRUNCATE", New: &schema.StatusRecord{QuestionID: "q1", Status: schema.StatusRedo}},
				statusEvent(store.EventInsert, "q1", "bogus", t0),
			},
			want:   schema.StatusTodo,
			cached: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache()
			m := NewMerger(quietLogger())
			for _, ev := range tt.events {
				m.Apply(c, ev)
			}
			if got := c.StatusOf("q1"); got != tt.want {
				t.Errorf("StatusOf(q1) = %q, want %q", got, tt.want)
			}
			if _, ok := c.Status("q1"); ok != tt.cached {
				t.Errorf("cached = %v, want %v", ok, tt.cached)
			}
		})
	}
}

func TestMergerIdempotent(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []store.ChangeEvent{
		statusEvent(store.EventInsert, "q1", schema.StatusCompleted, t0),
		statusEvent(store.EventUpdate, "q2", schema.StatusRedo, t0),
		statusEvent(store.EventDelete, "q3", schema.StatusTodo, t0),
	}

	once := NewCache()
	twice := NewCache()
	m := NewMerger(quietLogger())

	for _, ev := range events {
		m.Apply(once, ev)
		m.Apply(twice, ev)
		if m.Apply(twice, ev) {
			t.Errorf("re-applying %s reported a change", ev)
		}
	}

	for _, qid := range []string{"q1", "q2", "q3"} {
		a, aok := once.Status(qid)
		b, bok := twice.Status(qid)
		if a != b || aok != bok {
			t.Errorf("%s: once=%+v,%v twice=%+v,%v", qid, a, aok, b, bok)
		}
	}
}
