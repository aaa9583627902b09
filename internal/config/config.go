// Package config loads sheettrack settings from sheettrack.yaml,
// SHEETTRACK_* environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// WindowDays is the only supported length of the daily progress window.
const WindowDays = 14

// Config is the resolved configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Stats   StatsConfig   `mapstructure:"stats"`
}

// StoreConfig locates the embedded SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures `sheettrack serve`.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RemoteConfig points clients at a remote server. An empty URL means the
// local store is used directly.
type RemoteConfig struct {
	URL string `mapstructure:"url"`
}

// SessionConfig locates the session file that carries the identity.
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures log output. An empty File logs to stderr.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// StatsConfig configures statistics.
type StatsConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

// DefaultDir returns the per-user data directory, ~/.sheettrack.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheettrack"
	}
	return filepath.Join(home, ".sheettrack")
}

// New returns a viper instance with defaults, search paths, and the
// environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("sheettrack")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(DefaultDir())

	v.SetEnvPrefix("SHEETTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	dir := DefaultDir()
	v.SetDefault("store.path", filepath.Join(dir, "sheettrack.db"))
	v.SetDefault("server.port", 8080)
	v.SetDefault("remote.url", "")
	v.SetDefault("session.path", filepath.Join(dir, "session.toml"))
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("stats.window_days", WindowDays)
}

// Load reads the config file (file, or sheettrack.yaml on the search
// path when file is empty), then decodes and validates the result. A
// missing sheettrack.yaml is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("invalid config: store.path is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Remote.URL != "" && !strings.HasPrefix(c.Remote.URL, "http://") && !strings.HasPrefix(c.Remote.URL, "https://") {
		return fmt.Errorf("invalid config: remote.url %q must start with http:// or https://", c.Remote.URL)
	}
	if c.Session.Path == "" {
		return fmt.Errorf("invalid config: session.path is required")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("invalid config: log rotation settings must not be negative")
	}
	if c.Stats.WindowDays != WindowDays {
		return fmt.Errorf("invalid config: stats.window_days must be %d, got %d", WindowDays, c.Stats.WindowDays)
	}
	return nil
}
