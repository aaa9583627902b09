package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:     "seed <catalog.yaml>",
	GroupID: "store",
	Short:   "Load sheets and questions from a YAML catalog",
	Long: `Load sheets and questions into the local database from a YAML catalog.

Existing sheets and questions with the same ids are updated in place;
user statuses are never touched.

Catalog format:
  sheets:
    - id: blind-75
      name: Blind 75
      questions:
        - id: two-sum
          title: Two Sum
          difficulty: Easy
          topic: Arrays`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		catalog, err := schema.ReadCatalogFile(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		sheets, questions := catalog.Flatten()

		st, err := openLocal(ctx)
		if err != nil {
			fatalf("opening database: %v", err)
		}
		defer st.Close()

		fmt.Printf("%s Seeding %s from %s...\n", ui.RenderAccent("→"), st.Path(), args[0])

		for i := range sheets {
			if err := st.PutSheet(ctx, &sheets[i]); err != nil {
				fatalf("%v", err)
			}
		}
		for i := range questions {
			if err := st.PutQuestion(ctx, &questions[i]); err != nil {
				fatalf("%v", err)
			}
		}

		fmt.Printf("%s Loaded %d sheets and %d questions\n", ui.RenderPass("✓"), len(sheets), len(questions))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
