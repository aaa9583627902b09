package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var sheetsCmd = &cobra.Command{
	Use:     "sheets",
	GroupID: "track",
	Short:   "List practice sheets",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, closeStore, err := openStore(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer closeStore()

		eng := startEngine(ctx, st, identity.Static(currentIdentity()), nil)
		defer eng.Stop()

		state, err := eng.State(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		if len(state.Sheets) == 0 {
			fmt.Printf("%s No sheets yet. Load some with: sheettrack seed <catalog.yaml>\n", ui.RenderWarn("⚠"))
			return
		}
		fmt.Println(ui.SheetsTable(state.Sheets, state.ActiveSheet))
	},
}

var questionsCmd = &cobra.Command{
	Use:     "questions [sheet-id]",
	GroupID: "track",
	Short:   "List a sheet's questions with your statuses",
	Long: `List the questions of a sheet with your status for each one.

Without a sheet id the first sheet is shown. Questions you have no
record for show as todo.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, closeStore, err := openStore(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer closeStore()

		id := currentIdentity()
		eng := startEngine(ctx, st, identity.Static(id), nil)
		defer eng.Stop()

		if len(args) == 1 {
			if err := eng.SetActiveSheet(ctx, args[0]); err != nil {
				fatalf("%s: %v", args[0], err)
			}
		}

		state, err := eng.State(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		if state.ActiveSheet == "" {
			fmt.Printf("%s No sheets yet\n", ui.RenderWarn("⚠"))
			return
		}

		qs, err := eng.QuestionsWithStatus(ctx, state.ActiveSheet)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(ui.QuestionsTable(qs))
		if !id.Authenticated() {
			fmt.Fprintf(os.Stderr, "%s Not signed in; showing every question as todo\n", ui.RenderMuted("ℹ"))
		}
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(questionsCmd)
}
