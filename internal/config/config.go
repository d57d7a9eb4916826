// Package config loads and validates confvault.yml, the optional
// configuration file for the confvault CLI.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confvault/confvault/pkg/store"
)

// Settings is the top-level confvault.yml configuration.
type Settings struct {
	Storage  string `yaml:"storage"`             // storage root directory
	Backend  string `yaml:"backend"`             // flat, git or gogit
	OwnerTag string `yaml:"owner_tag,omitempty"` // logical producer used in commit messages
	LogLevel string `yaml:"log_level,omitempty"` // debug, info, warn or error
	LogFile  string `yaml:"log_file,omitempty"`  // append log output here instead of stderr
}

// Default returns the settings used when no configuration file is supplied.
func Default() *Settings {
	return &Settings{
		Storage:  ".",
		Backend:  string(store.KindGitCLI),
		LogLevel: "info",
	}
}

// Load reads and validates confvault.yml from the specified path. Fields
// absent from the file keep their defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// Validate performs strict validation on the configuration.
func (s *Settings) Validate() error {
	if s.Storage == "" {
		return fmt.Errorf("storage is required")
	}
	if _, err := store.ParseKind(s.Backend); err != nil {
		return err
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logger builds the slog logger the CLI and store share, honoring log_level
// and log_file. The returned closer is non-nil when a log file was opened.
func (s *Settings) Logger() (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if s.LogFile != "" {
		f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = f
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log_level: %q (valid: debug, info, warn, error)", s)
}
