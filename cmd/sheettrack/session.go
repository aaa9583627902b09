package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login <user-id>",
	GroupID: "session",
	Short:   "Sign in as a user",
	Long: `Sign in by writing the user id to the session file.

Running "sheettrack watch" sessions pick the change up immediately and
reload that user's statuses.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := identity.Identity{UserID: args[0]}
		if err := identity.WriteSession(cfg.Session.Path, id); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Signed in as %s\n", ui.RenderPass("✓"), ui.RenderBold(id.UserID))
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "session",
	Short:   "Sign out",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := identity.ClearSession(cfg.Session.Path); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Signed out\n", ui.RenderPass("✓"))
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
