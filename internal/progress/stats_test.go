package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
)

func statsCache(statuses map[string]schema.Status) *Cache {
	c := NewCache()
	snap := &Snapshot{
		Sheets: []schema.Sheet{{ID: "s1", Name: "Blind 75"}, {ID: "s2", Name: "Grind"}},
		Questions: map[string][]schema.Question{
			"s1": {
				{ID: "q1", Topic: "arrays"}, {ID: "q2", Topic: "arrays"}, {ID: "q3", Topic: "graphs"},
				{ID: "q4", Topic: "dp"}, {ID: "q5", Topic: "graphs"}, {ID: "q6", Topic: "arrays"},
			},
			"s2": {{ID: "q7", Topic: "graphs"}},
		},
		Statuses: make(map[string]StatusEntry),
	}
	for qid, st := range statuses {
		snap.Statuses[qid] = StatusEntry{Status: st}
	}
	c.Replace(snap)
	return c
}

func TestSheetStatistics(t *testing.T) {
	c := statsCache(map[string]schema.Status{
		"q1": schema.StatusCompleted,
		"q2": schema.StatusRevision,
		"q3": schema.StatusTodo,
		"q5": schema.StatusRedo,
		"q9": schema.StatusCompleted, // orphan
	})

	stats := SheetStatistics(c)
	if len(stats) != 2 {
		t.Fatalf("len = %d, want 2", len(stats))
	}

	s1 := stats[0]
	if s1.SheetID != "s1" || s1.SheetName != "Blind 75" {
		t.Errorf("first sheet = %s/%s", s1.SheetID, s1.SheetName)
	}
	got := [5]int{s1.Completed, s1.Revision, s1.Redo, s1.Todo, s1.TotalQuestions}
	want := [5]int{1, 1, 1, 3, 6}
	if got != want {
		t.Errorf("s1 tallies = %v, want %v", got, want)
	}

	s2 := stats[1]
	if s2.Todo != 1 || s2.TotalQuestions != 1 || s2.Completed != 0 {
		t.Errorf("s2 = %+v", s2)
	}

	for _, s := range stats {
		sum := 0
		for _, st := range schema.AllStatuses {
			sum += s.Count(st)
		}
		if sum != s.TotalQuestions {
			t.Errorf("%s: counts sum to %d, total %d", s.SheetID, sum, s.TotalQuestions)
		}
	}
}

func TestSheetStatisticsEmpty(t *testing.T) {
	if got := SheetStatistics(NewCache()); len(got) != 0 {
		t.Errorf("empty cache produced %d statistics", len(got))
	}
}

func TestTopicStatistics(t *testing.T) {
	c := statsCache(map[string]schema.Status{
		"q1": schema.StatusCompleted,
		"q3": schema.StatusCompleted,
		"q6": schema.StatusRevision,
		"q7": schema.StatusCompleted,
		"q9": schema.StatusCompleted, // orphan
	})

	stats := TopicStatistics(c)
	want := []TopicStatistic{
		{Topic: "arrays", Completed: 1, Total: 3},
		{Topic: "graphs", Completed: 2, Total: 3},
		{Topic: "dp", Completed: 0, Total: 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	total := 0
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("stats[%d] = %+v, want %+v", i, stats[i], want[i])
		}
		total += stats[i].Total
	}
	if total != 7 {
		t.Errorf("topic totals sum to %d, want 7 loaded questions", total)
	}
}

func TestDailyWindow(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, loc)

	days := DailyWindow(now)
	if len(days) != HistogramDays {
		t.Fatalf("len = %d, want %d", len(days), HistogramDays)
	}
	if days[0].Date != "2024-02-18" {
		t.Errorf("first date = %s, want 2024-02-18", days[0].Date)
	}
	if days[HistogramDays-1].Date != "2024-03-02" {
		t.Errorf("last date = %s, want 2024-03-02", days[HistogramDays-1].Date)
	}
	for _, d := range days {
		if d.Completed != 0 {
			t.Errorf("%s: completed = %d, want 0", d.Date, d.Completed)
		}
	}
}

func TestFetchDailyProgress(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	fs := newFakeStore()
	fs.put(schema.StatusRecord{UserID: "alice", QuestionID: "q1", Status: schema.StatusCompleted, LastUpdated: now.Add(-time.Hour)})
	fs.put(schema.StatusRecord{UserID: "alice", QuestionID: "q2", Status: schema.StatusCompleted, LastUpdated: now.Add(-2 * time.Hour)})
	fs.put(schema.StatusRecord{UserID: "alice", QuestionID: "q3", Status: schema.StatusCompleted, LastUpdated: now.AddDate(0, 0, -13)})
	fs.put(schema.StatusRecord{UserID: "alice", QuestionID: "q4", Status: schema.StatusCompleted, LastUpdated: now.AddDate(0, 0, -14)})

	days, err := FetchDailyProgress(context.Background(), fs, "alice", []string{"q1", "q2", "q3", "q4"}, now)
	if err != nil {
		t.Fatalf("FetchDailyProgress() error: %v", err)
	}
	if fs.count("ListStatusesFor") != 1 {
		t.Errorf("ListStatusesFor called %d times, want 1", fs.count("ListStatusesFor"))
	}
	if days[13].Completed != 2 {
		t.Errorf("today = %d, want 2", days[13].Completed)
	}
	if days[0].Date != "2024-03-01" || days[0].Completed != 1 {
		t.Errorf("oldest = %+v, want 2024-03-01 with 1", days[0])
	}
	sum := 0
	for _, d := range days {
		sum += d.Completed
	}
	if sum != 3 {
		t.Errorf("window total = %d, want 3 (one record outside the window)", sum)
	}
}

func TestFetchDailyProgressNoCompleted(t *testing.T) {
	fs := newFakeStore()
	days, err := FetchDailyProgress(context.Background(), fs, "alice", nil, time.Now())
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(days) != HistogramDays {
		t.Errorf("len = %d, want %d", len(days), HistogramDays)
	}
	if fs.total() != 0 {
		t.Error("empty histogram contacted the store")
	}
}

func TestFetchDailyProgressError(t *testing.T) {
	fs := newFakeStore()
	fs.setFail("ListStatusesFor", errInjected)

	days, err := FetchDailyProgress(context.Background(), fs, "alice", []string{"q1"}, time.Now())
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("error = %v, want ErrAggregation", err)
	}
	if len(days) != HistogramDays {
		t.Fatalf("len = %d, want the zero window", len(days))
	}
	for _, d := range days {
		if d.Completed != 0 {
			t.Errorf("%s: completed = %d, want 0", d.Date, d.Completed)
		}
	}
}

func TestComputeDailyProgressAnonymous(t *testing.T) {
	fs := newFakeStore()
	c := statsCache(map[string]schema.Status{"q1": schema.StatusCompleted})

	days, err := ComputeDailyProgress(context.Background(), c, fs, identity.Anonymous, time.Now())
	if err != nil || len(days) != HistogramDays {
		t.Errorf("got %d days, err %v", len(days), err)
	}
	if fs.total() != 0 {
		t.Error("anonymous histogram contacted the store")
	}
}
