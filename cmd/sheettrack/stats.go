package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/progress"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "track",
	Short:   "Show progress statistics",
	Long: `Show progress statistics for the signed-in user.

  --sheets   per-sheet counts of completed, revision, redo and todo
  --topics   completed/total per topic across all sheets
  --daily    questions completed on each of the last 14 days (UTC)

With no selector all three are shown. --today moves the end of the
daily window and accepts dates like "2024-03-14", "yesterday" or
"last friday".`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		showSheets, _ := cmd.Flags().GetBool("sheets")
		showTopics, _ := cmd.Flags().GetBool("topics")
		showDaily, _ := cmd.Flags().GetBool("daily")
		todayText, _ := cmd.Flags().GetString("today")
		if !showSheets && !showTopics && !showDaily {
			showSheets, showTopics, showDaily = true, true, true
		}

		today := time.Now()
		if todayText != "" {
			parsed, err := parseDay(todayText, today)
			if err != nil {
				fatalf("%v", err)
			}
			today = parsed
		}

		ctx := context.Background()
		st, closeStore, err := openStore(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer closeStore()

		config := progress.DefaultConfig()
		config.Logger = newLogger("engine")
		config.Now = func() time.Time { return today }
		eng := startEngine(ctx, st, identity.Static(currentIdentity()), config)
		defer eng.Stop()

		if showSheets {
			stats, err := eng.SheetStatistics(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("\n%s Sheets\n", ui.RenderAccent("■"))
			fmt.Println(ui.SheetStatsTable(stats))
		}

		if showTopics {
			stats, err := eng.TopicStatistics(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("\n%s Topics\n", ui.RenderAccent("■"))
			fmt.Println(ui.TopicStatsTable(stats))
		}

		if showDaily {
			days, err := eng.DailyProgress(ctx)
			if err != nil && !errors.Is(err, progress.ErrAggregation) {
				fatalf("%v", err)
			}
			fmt.Printf("\n%s Last %d days\n", ui.RenderAccent("■"), progress.HistogramDays)
			fmt.Print(ui.DailyChart(days))
			if err != nil {
				fmt.Printf("%s %v\n", ui.RenderWarn("⚠"), err)
			}
		}
	},
}

// parseDay resolves an ISO date or a natural-language day relative to now.
func parseDay(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid date %q", text)
	}
	return r.Time, nil
}

func init() {
	statsCmd.Flags().Bool("sheets", false, "Show per-sheet statistics")
	statsCmd.Flags().Bool("topics", false, "Show per-topic statistics")
	statsCmd.Flags().Bool("daily", false, "Show the daily completion histogram")
	statsCmd.Flags().String("today", "", "End date of the daily window (e.g. 2024-03-14, yesterday)")
	rootCmd.AddCommand(statsCmd)
}
