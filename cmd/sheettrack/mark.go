package main

import (
	"context"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
)

var markCmd = &cobra.Command{
	Use:     "mark <question-id> [status]",
	GroupID: "track",
	Short:   "Set your status for a question",
	Long: `Set your status for a question: todo, redo, revision or completed.

When the status is omitted and stdin is a terminal, you pick it from a
list. You must be signed in (see "sheettrack login").

Examples:
  sheettrack mark two-sum completed
  sheettrack mark clone-graph`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		questionID := args[0]

		var status schema.Status
		if len(args) == 2 {
			parsed, err := schema.ParseStatus(args[1])
			if err != nil {
				fatalf("%v", err)
			}
			status = parsed
		} else {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fatalf("status is required when stdin is not a terminal")
			}
			picked, err := pickStatus(questionID)
			if err != nil {
				fatalf("%v", err)
			}
			status = picked
		}

		ctx := context.Background()
		st, closeStore, err := openStore(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer closeStore()

		eng := startEngine(ctx, st, identity.Static(currentIdentity()), nil)
		defer eng.Stop()

		// The toast notifier has already printed the outcome.
		if _, err := eng.UpdateStatus(ctx, questionID, status); err != nil {
			_ = eng.Stop()
			closeStore()
			os.Exit(1)
		}
	},
}

// pickStatus asks for a status interactively.
func pickStatus(questionID string) (schema.Status, error) {
	var choice schema.Status
	options := make([]huh.Option[schema.Status], 0, len(schema.AllStatuses))
	for _, s := range schema.AllStatuses {
		options = append(options, huh.NewOption(s.Phrase(), s))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[schema.Status]().
				Title("Status for " + questionID).
				Options(options...).
				Value(&choice),
		),
	).Run()
	if err != nil {
		return "", err
	}
	return choice, nil
}

func init() {
	rootCmd.AddCommand(markCmd)
}
