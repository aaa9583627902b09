package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheettrack/sheettrack/internal/config"
	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/logging"
	"github.com/sheettrack/sheettrack/internal/progress"
	"github.com/sheettrack/sheettrack/internal/remote"
	"github.com/sheettrack/sheettrack/internal/store"
	"github.com/sheettrack/sheettrack/internal/store/sqlite"
	"github.com/sheettrack/sheettrack/internal/ui"
)

var (
	cfgFile string
	noColor bool

	cfg    *config.Config
	logOut io.WriteCloser = nopWriteCloser{os.Stderr}
)

var rootCmd = &cobra.Command{
	Use:   "sheettrack",
	Short: "Track progress through coding practice sheets",
	Long: `sheettrack keeps your progress through curated coding practice sheets
in sync with a shared store, and reports per-sheet, per-topic and daily
statistics.

The store is a local SQLite database by default. Point --remote (or
remote.url) at a "sheettrack serve" instance to share it across machines;
status changes made anywhere stream to every "sheettrack watch".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New()
		flags := cmd.Root().PersistentFlags()
		for key, flag := range map[string]string{
			"store.path":   "store",
			"remote.url":   "remote",
			"session.path": "session",
			"log.file":     "log-file",
		} {
			if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return err
			}
		}

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		out, err := logging.Open(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logOut = out

		ui.Init(os.Stdout, noColor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logOut.Close()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "track", Title: "Tracking Commands:"},
		&cobra.Group{ID: "session", Title: "Session Commands:"},
		&cobra.Group{ID: "store", Title: "Store Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./sheettrack.yaml or ~/.sheettrack/sheettrack.yaml)")
	flags.String("store", "", "path to the SQLite database")
	flags.String("remote", "", "URL of a sheettrack server to use instead of the local database")
	flags.String("session", "", "path to the session file")
	flags.String("log-file", "", "write logs to this file (rotated) instead of stderr")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a component logger writing to the configured output.
func newLogger(component string) *log.Logger {
	return logging.New(logOut, component)
}

// fatalf reports an error and exits.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	_ = logOut.Close()
	os.Exit(1)
}

// openLocal opens the configured SQLite database and applies the schema.
func openLocal(ctx context.Context) (*sqlite.Store, error) {
	st, err := sqlite.Open(cfg.Store.Path, newLogger("store"))
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// openStore returns the configured RemoteStore: the remote server when
// remote.url is set, otherwise the local database.
func openStore(ctx context.Context) (store.RemoteStore, func(), error) {
	if cfg.Remote.URL != "" {
		client, err := remote.NewClient(cfg.Remote.URL, newLogger("remote"))
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}

	st, err := openLocal(ctx)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// currentIdentity reads the identity from the session file.
func currentIdentity() identity.Identity {
	id, err := identity.ReadSession(cfg.Session.Path)
	if err != nil {
		fatalf("%v", err)
	}
	return id
}

// startEngine runs an engine for ids and waits for its first load.
func startEngine(ctx context.Context, st store.RemoteStore, ids identity.Provider, config *progress.Config) *progress.Engine {
	if config == nil {
		config = progress.DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = newLogger("engine")
	}
	if config.Notifier == nil {
		config.Notifier = ui.NewToastNotifier(os.Stdout)
	}

	eng := progress.NewEngineWithConfig(st, ids, config)
	go func() {
		if err := eng.Run(ctx); err != nil {
			config.Logger.Printf("Engine stopped: %v", err)
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := eng.WaitIdle(waitCtx); err != nil {
		fatalf("loading data: %v", err)
	}

	state, err := eng.State(waitCtx)
	if err != nil {
		fatalf("%v", err)
	}
	if state.Err != "" {
		fatalf("%s", state.Err)
	}
	return eng
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
