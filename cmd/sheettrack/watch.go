package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/progress"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "track",
	Short:   "Follow progress live",
	Long: `Keep the engine running and print sheet progress whenever it changes.

Status changes made by any client for the signed-in user appear here as
they happen. Signing in or out in another terminal switches users
without restarting.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		st, closeStore, err := openStore(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer closeStore()

		sessions, err := identity.NewSessionWatcher(cfg.Session.Path, newLogger("identity"))
		if err != nil {
			fatalf("%v", err)
		}
		if err := sessions.Start(); err != nil {
			fatalf("%v", err)
		}
		defer sessions.Stop()

		changes := make(chan progress.ChangeKind, 16)
		config := progress.DefaultConfig()
		config.Logger = newLogger("engine")
		config.Notifier = ui.NewToastNotifier(os.Stdout)
		config.OnChange = func(k progress.ChangeKind) {
			select {
			case changes <- k:
			default:
			}
		}

		eng := startEngine(ctx, st, sessions, config)
		defer eng.Stop()

		fmt.Printf("%s Watching as %s (Ctrl+C to stop)\n", ui.RenderAccent("●"), ui.RenderBold(sessions.Current().String()))
		printProgress(ctx, eng)

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopped")
				return

			case k := <-changes:
				// Coalesce bursts into one redraw.
				time.Sleep(50 * time.Millisecond)
			drain:
				for {
					select {
					case next := <-changes:
						if next == progress.ChangeIdentity {
							k = next
						}
					default:
						break drain
					}
				}

				if k == progress.ChangeIdentity {
					if err := eng.WaitIdle(ctx); err != nil {
						continue
					}
					state, err := eng.State(ctx)
					if err != nil {
						continue
					}
					fmt.Printf("\n%s Now signed in as %s\n", ui.RenderAccent("●"), ui.RenderBold(state.Identity.String()))
				}
				printProgress(ctx, eng)
			}
		}
	},
}

// printProgress prints one line per sheet.
func printProgress(ctx context.Context, eng *progress.Engine) {
	state, err := eng.State(ctx)
	if err != nil {
		return
	}
	if state.Err != "" {
		fmt.Printf("%s %s\n", ui.RenderWarn("⚠"), state.Err)
	}

	stats, err := eng.SheetStatistics(ctx)
	if err != nil {
		return
	}
	fmt.Printf("%s\n", ui.RenderMuted(time.Now().Format("15:04:05")))
	for _, s := range stats {
		fmt.Printf("  %-24s %s\n", s.SheetName, ui.ProgressBar(s.Completed, s.TotalQuestions, 24))
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
