package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/remote"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "store",
	Short:   "Serve the local database to remote clients",
	Long: `Serve the local SQLite database over HTTP and WebSocket.

Clients started with --remote http://host:port read and write through this
server and receive status changes in real time.

Endpoints:
  GET    /api/sheets
  GET    /api/sheets/:id/questions
  GET    /api/statuses?user_id=...&question_id=...
  GET    /api/statuses/:user_id/:question_id
  POST   /api/statuses        (insert)
  PATCH  /api/statuses        (update)
  PUT    /api/statuses        (upsert)
  DELETE /api/statuses/:user_id/:question_id
  GET    /ws?user_id=...      (status change stream)
  GET    /health

Example usage:
  sheettrack serve                # Start on the configured port (default 8080)
  sheettrack serve --port 9000    # Start on a custom port`,
	Run: func(cmd *cobra.Command, args []string) {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		st, err := openLocal(ctx)
		if err != nil {
			fatalf("opening database: %v", err)
		}
		defer st.Close()

		server := remote.NewServer(st, &remote.Config{
			Port:   port,
			Logger: newLogger("remote"),
		})
		if err := server.Start(); err != nil {
			fatalf("failed to start server: %v", err)
		}

		fmt.Printf("%s Serving %s on http://%s\n", ui.RenderPass("✓"), st.Path(), server.GetAddr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws?user_id=...\n", server.GetAddr())
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down server...")
		if err := server.Stop(); err != nil {
			fatalf("during shutdown: %v", err)
		}
		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
