package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newIsolated returns a viper instance that only searches dir.
func newIsolated(t *testing.T) (dir string, load func(file string) (*Config, error)) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)

	v := New()
	v.AddConfigPath(dir)
	return dir, func(file string) (*Config, error) { return Load(v, file) }
}

func TestLoadDefaults(t *testing.T) {
	_, load := newIsolated(t)

	cfg, err := load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Remote.URL != "" {
		t.Errorf("Remote.URL = %q, want empty", cfg.Remote.URL)
	}
	if filepath.Base(cfg.Store.Path) != "sheettrack.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if filepath.Base(cfg.Session.Path) != "session.toml" {
		t.Errorf("Session.Path = %q", cfg.Session.Path)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 28 {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Stats.WindowDays != WindowDays {
		t.Errorf("Stats.WindowDays = %d", cfg.Stats.WindowDays)
	}
}

func TestLoadFile(t *testing.T) {
	dir, load := newIsolated(t)
	file := filepath.Join(dir, "custom.yaml")
	content := `
store:
  path: /tmp/custom.db
server:
  port: 9090
remote:
  url: http://tracker.internal:9090
log:
  file: /tmp/sheettrack.log
  max_backups: 7
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(file)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Path != "/tmp/custom.db" || cfg.Server.Port != 9090 {
		t.Errorf("store/server = %+v / %+v", cfg.Store, cfg.Server)
	}
	if cfg.Remote.URL != "http://tracker.internal:9090" {
		t.Errorf("Remote.URL = %q", cfg.Remote.URL)
	}
	if cfg.Log.File != "/tmp/sheettrack.log" || cfg.Log.MaxBackups != 7 || cfg.Log.MaxSizeMB != 10 {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir, load := newIsolated(t)
	if err := os.WriteFile(filepath.Join(dir, "sheettrack.yaml"), []byte("server:\n  port: 9090\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHEETTRACK_SERVER_PORT", "7070")
	t.Setenv("SHEETTRACK_REMOTE_URL", "https://example.com")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Remote.URL != "https://example.com" {
		t.Errorf("Remote.URL = %q", cfg.Remote.URL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir, load := newIsolated(t)
	if _, err := load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:   StoreConfig{Path: "x.db"},
			Server:  ServerConfig{Port: 8080},
			Session: SessionConfig{Path: "session.toml"},
			Log:     LogConfig{MaxSizeMB: 10},
			Stats:   StatsConfig{WindowDays: WindowDays},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad remote scheme", func(c *Config) { c.Remote.URL = "tracker:8080" }, "remote.url"},
		{"no session path", func(c *Config) { c.Session.Path = "" }, "session.path"},
		{"negative rotation", func(c *Config) { c.Log.MaxBackups = -1 }, "log rotation"},
		{"window length", func(c *Config) { c.Stats.WindowDays = 7 }, "window_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
