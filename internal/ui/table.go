package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sheettrack/sheettrack/internal/progress"
	"github.com/sheettrack/sheettrack/internal/schema"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...)
}

// SheetsTable lists sheets with their question totals. active is marked.
func SheetsTable(sheets []schema.Sheet, active string) string {
	t := newTable("", "ID", "Name", "Questions")
	for _, sh := range sheets {
		marker := ""
		if sh.ID == active {
			marker = "*"
		}
		t.Row(marker, sh.ID, sh.Name, strconv.Itoa(sh.TotalQuestions))
	}
	return t.Render()
}

// QuestionsTable lists questions with their effective statuses.
func QuestionsTable(qs []schema.QuestionWithStatus) string {
	t := newTable("ID", "Title", "Difficulty", "Topic", "Status")
	for _, q := range qs {
		t.Row(q.ID, q.Title, RenderDifficulty(q.Difficulty), q.Topic, RenderStatus(q.Status))
	}
	return t.Render()
}

// SheetStatsTable renders per-sheet tallies with a completion bar.
func SheetStatsTable(stats []progress.SheetStatistic) string {
	t := newTable("Sheet", "Completed", "Revision", "Redo", "Todo", "Progress")
	for _, s := range stats {
		t.Row(
			s.SheetName,
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Revision),
			strconv.Itoa(s.Redo),
			strconv.Itoa(s.Todo),
			ProgressBar(s.Completed, s.TotalQuestions, 20),
		)
	}
	return t.Render()
}

// TopicStatsTable renders per-topic completion.
func TopicStatsTable(stats []progress.TopicStatistic) string {
	t := newTable("Topic", "Completed", "Total", "Progress")
	for _, s := range stats {
		topic := s.Topic
		if topic == "" {
			topic = RenderMuted("(none)")
		}
		t.Row(topic, strconv.Itoa(s.Completed), strconv.Itoa(s.Total), ProgressBar(s.Completed, s.Total, 20))
	}
	return t.Render()
}

// DailyChart renders the histogram as one bar per day, scaled to the
// busiest day.
func DailyChart(days []progress.DailyProgress) string {
	peak := 0
	for _, d := range days {
		if d.Completed > peak {
			peak = d.Completed
		}
	}

	var b strings.Builder
	for _, d := range days {
		bar := ""
		if peak > 0 {
			bar = passStyle.Render(strings.Repeat("▇", d.Completed*30/peak))
		}
		fmt.Fprintf(&b, "%s %3d %s\n", RenderMuted(d.Date), d.Completed, bar)
	}
	return b.String()
}
