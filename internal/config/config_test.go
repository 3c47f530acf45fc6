package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, time.Second, cfg.PollMinInterval)
	assert.Equal(t, 5*time.Second, cfg.Overlap)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeTOML(t, `
poll_min_interval = "500ms"
poll_max_interval = "30s"
poll_multiplier = 3
page_limit = 100
log_format = "json"
`)
	t.Setenv("LAMBDA_LOGS_POLL_MAX_INTERVAL", "1m")
	t.Setenv("LAMBDA_LOGS_RETRY_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PollMinInterval)
	assert.Equal(t, time.Minute, cfg.PollMaxInterval, "env overrides file")
	assert.Equal(t, 3.0, cfg.PollMultiplier)
	assert.Equal(t, int32(100), cfg.PageLimit)
	assert.Equal(t, 7, cfg.RetryMaxAttempts)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.Overlap, "unset keys keep defaults")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"max below min", "LAMBDA_LOGS_POLL_MAX_INTERVAL", "100ms"},
		{"multiplier below one", "LAMBDA_LOGS_POLL_MULTIPLIER", "0.5"},
		{"page limit too large", "LAMBDA_LOGS_PAGE_LIMIT", "20000"},
		{"zero attempts", "LAMBDA_LOGS_RETRY_MAX_ATTEMPTS", "0"},
		{"unknown log format", "LAMBDA_LOGS_LOG_FORMAT", "xml"},
		{"unknown log level", "LAMBDA_LOGS_LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	_, err := Load(writeTOML(t, "overlap = "))
	require.Error(t, err)
}

func TestEngine(t *testing.T) {
	cfg := Default()
	cfg.MaxSpan = time.Hour
	cfg.PageLimit = 50

	e := cfg.Engine()
	assert.Equal(t, time.Hour, e.MaxSpan)
	assert.Equal(t, int32(50), e.PageLimit)
	assert.Equal(t, cfg.PollMinInterval, e.PollMinInterval)
	assert.Equal(t, cfg.RetryMaxAttempts, e.RetryMaxAttempts)
}
