package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confvault.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, ".", s.Storage)
	assert.Equal(t, "git", s.Backend)
	assert.Equal(t, "info", s.LogLevel)
	require.NoError(t, s.Validate())
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
storage: /var/lib/confvault
backend: gogit
owner_tag: nms-host
log_level: debug
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/confvault", s.Storage)
	assert.Equal(t, "gogit", s.Backend)
	assert.Equal(t, "nms-host", s.OwnerTag)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "storage: /data/snapshots\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/snapshots", s.Storage)
	assert.Equal(t, "git", s.Backend)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, "storage: /data\nbackend: svn\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend kind")
}

func TestValidate_EmptyStorage(t *testing.T) {
	s := Default()
	s.Storage = ""
	assert.EqualError(t, s.Validate(), "storage is required")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	s := Default()
	s.LogLevel = "verbose"
	require.Error(t, s.Validate())
	assert.Contains(t, s.Validate().Error(), "invalid log_level")
}

func TestLogger_Stderr(t *testing.T) {
	s := Default()

	logger, closer, err := s.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Nil(t, closer)
}

func TestLogger_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "confvault.log")
	s := Default()
	s.LogFile = logPath
	s.LogLevel = "warn"

	logger, closer, err := s.Logger()
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	logger.Warn("downgrade test entry")
	logger.Info("filtered entry")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "downgrade test entry")
	assert.NotContains(t, string(data), "filtered entry")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}
	for _, tt := range tests {
		level, err := parseLevel(tt.in)
		require.NoError(t, err, "level %q", tt.in)
		assert.Equal(t, tt.want, level)
	}

	_, err := parseLevel("trace")
	assert.Error(t, err)
}
