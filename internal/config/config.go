// Package config loads lotbook settings: built-in defaults, then an optional
// YAML file, then LOTBOOK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "lotbook.yaml"

// Config holds every setting.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Media    MediaConfig    `yaml:"media"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// MaxUploadBytes caps an import or photo upload.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// MediaConfig places photo folders and controls archive cleanup.
type MediaConfig struct {
	Root             string        `yaml:"root"`
	ArchiveRetention time.Duration `yaml:"archive_retention"`
	PurgeSchedule    string        `yaml:"purge_schedule"`
}

// LogConfig controls logging.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "lotbook.sqlite3"},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			MaxUploadBytes:    32 << 20,
		},
		Media: MediaConfig{
			Root:             "media",
			ArchiveRetention: 14 * 24 * time.Hour,
			PurgeSchedule:    "@daily",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadDotEnv loads KEY=value pairs from files (".env" when none are given)
// into the process environment. Missing files are ignored; variables that
// are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration. An empty path reads DefaultFile when it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from LOTBOOK_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOTBOOK_DB":             &c.Database.Path,
		"LOTBOOK_ADDR":           &c.Server.Addr,
		"LOTBOOK_MEDIA_ROOT":     &c.Media.Root,
		"LOTBOOK_PURGE_SCHEDULE": &c.Media.PurgeSchedule,
		"LOTBOOK_LOG_FILE":       &c.Log.File,
		"LOTBOOK_LOG_LEVEL":      &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("LOTBOOK_ARCHIVE_RETENTION"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LOTBOOK_ARCHIVE_RETENTION: %w", err)
		}
		c.Media.ArchiveRetention = d
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return errors.New("database path is empty")
	case c.Server.Addr == "":
		return errors.New("server address is empty")
	case c.Media.Root == "":
		return errors.New("media root is empty")
	case c.Media.ArchiveRetention <= 0:
		return fmt.Errorf("archive retention must be positive, got %v", c.Media.ArchiveRetention)
	case c.Server.MaxUploadBytes <= 0:
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
