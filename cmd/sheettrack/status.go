package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "store",
	Short:   "Show database and session status",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := currentIdentity()

		fmt.Printf("\n%s sheettrack Status\n\n", ui.RenderAccent("■"))
		if id.Authenticated() {
			fmt.Printf("Signed in as:  %s\n", ui.RenderBold(id.UserID))
		} else {
			fmt.Printf("Signed in as:  %s\n", ui.RenderMuted("(nobody)"))
		}
		if cfg.Remote.URL != "" {
			fmt.Printf("Remote:        %s\n", cfg.Remote.URL)
		}

		st, err := openLocal(ctx)
		if err != nil {
			fatalf("opening database: %v", err)
		}
		defer st.Close()

		counts, err := st.Count(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Database:      %s\n", st.Path())
		fmt.Printf("Sheets:        %d\n", counts.Sheets)
		fmt.Printf("Questions:     %d\n", counts.Questions)
		fmt.Printf("Statuses:      %d\n", counts.Statuses)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
