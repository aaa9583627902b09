package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// HistogramDays is the length of the daily progress window.
const HistogramDays = 14

// dateLayout is the calendar-date format of DailyProgress.Date.
const dateLayout = "2006-01-02"

// SheetStatistic counts a sheet's loaded questions by effective status.
// Completed+Revision+Redo+Todo always equals TotalQuestions.
type SheetStatistic struct {
	SheetID        string `json:"sheet_id"`
	SheetName      string `json:"sheet_name"`
	Completed      int    `json:"completed"`
	Revision       int    `json:"revision"`
	Redo           int    `json:"redo"`
	Todo           int    `json:"todo"`
	TotalQuestions int    `json:"total_questions"`
}

// Count returns the tally for status s.
func (s SheetStatistic) Count(status schema.Status) int {
	switch status {
	case schema.StatusCompleted:
		return s.Completed
	case schema.StatusRevision:
		return s.Revision
	case schema.StatusRedo:
		return s.Redo
	default:
		return s.Todo
	}
}

// TopicStatistic is the completion ratio of one topic across all sheets.
type TopicStatistic struct {
	Topic     string `json:"topic"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// DailyProgress is the number of questions completed on one UTC date.
type DailyProgress struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// SheetStatistics tallies every loaded sheet, in load order.
//
// Only questions loaded for a sheet are counted; status entries for
// questions outside the loaded sheets never contribute.
func SheetStatistics(c *Cache) []SheetStatistic {
	out := make([]SheetStatistic, 0, len(c.sheets))
	for _, sh := range c.sheets {
		qs := c.questions[sh.ID]
		st := SheetStatistic{
			SheetID:        sh.ID,
			SheetName:      sh.Name,
			TotalQuestions: len(qs),
		}
		for _, q := range qs {
			switch c.StatusOf(q.ID) {
			case schema.StatusCompleted:
				st.Completed++
			case schema.StatusRevision:
				st.Revision++
			case schema.StatusRedo:
				st.Redo++
			default:
				st.Todo++
			}
		}
		out = append(out, st)
	}
	return out
}

// TopicStatistics groups every loaded question by topic, in order of the
// topic's first appearance across sheets.
func TopicStatistics(c *Cache) []TopicStatistic {
	index := make(map[string]int)
	var out []TopicStatistic

	for _, sh := range c.sheets {
		for _, q := range c.questions[sh.ID] {
			i, ok := index[q.Topic]
			if !ok {
				i = len(out)
				index[q.Topic] = i
				out = append(out, TopicStatistic{Topic: q.Topic})
			}
			out[i].Total++
			if c.StatusOf(q.ID) == schema.StatusCompleted {
				out[i].Completed++
			}
		}
	}
	return out
}

// DailyWindow returns the zero-filled window of HistogramDays UTC dates
// ending at now's date, oldest first.
func DailyWindow(now time.Time) []DailyProgress {
	today := now.UTC()
	out := make([]DailyProgress, HistogramDays)
	for i := range out {
		day := today.AddDate(0, 0, i-(HistogramDays-1))
		out[i] = DailyProgress{Date: day.Format(dateLayout)}
	}
	return out
}

// FetchDailyProgress builds the completion histogram for completedIDs.
//
// With no completed ids it returns the zero window without contacting
// the store. Otherwise it reads the last_updated timestamps of exactly
// those records and counts each one on its UTC date; dates outside the
// window are ignored. If the read fails the zero window is returned
// together with an error wrapping ErrAggregation.
func FetchDailyProgress(ctx context.Context, st store.RemoteStore, userID string, completedIDs []string, now time.Time) ([]DailyProgress, error) {
	window := DailyWindow(now)
	if len(completedIDs) == 0 || userID == "" {
		return window, nil
	}

	recs, err := st.ListStatusesFor(ctx, userID, completedIDs)
	if err != nil {
		return window, fmt.Errorf("%w: %v", ErrAggregation, err)
	}

	index := make(map[string]int, len(window))
	for i, d := range window {
		index[d.Date] = i
	}
	for _, rec := range recs {
		if i, ok := index[rec.LastUpdated.UTC().Format(dateLayout)]; ok {
			window[i].Completed++
		}
	}
	return window, nil
}

// ComputeDailyProgress is FetchDailyProgress over the completed entries
// of c for id. An unauthenticated identity yields the zero window.
func ComputeDailyProgress(ctx context.Context, c *Cache, st store.RemoteStore, id identity.Identity, now time.Time) ([]DailyProgress, error) {
	if !id.Authenticated() {
		return DailyWindow(now), nil
	}
	return FetchDailyProgress(ctx, st, id.UserID, c.CompletedQuestionIDs(), now)
}
