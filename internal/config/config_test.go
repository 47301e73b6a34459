// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers env parsing, YAML files, env overrides, and fail-fast errors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:test-token")
	t.Setenv("TELEGRAM_GROUP_ID", "-1001234567890")
	t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "42, 314")
}

func TestLoad_FromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_MAX_SESSIONS", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123456:test-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(-1001234567890), cfg.Telegram.GroupID)
	assert.Equal(t, []int64{42, 314}, cfg.Telegram.AllowedUserIDs)
	assert.Equal(t, 3, cfg.Telegram.MaxSessions)
	assert.Equal(t, "http://127.0.0.1:4096", cfg.OpenCode.BaseURL)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxSessions, cfg.Telegram.MaxSessions)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.NotifyEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{"missing token", "TELEGRAM_BOT_TOKEN", "bot_token"},
		{"missing group", "TELEGRAM_GROUP_ID", "group_id"},
		{"missing users", "TELEGRAM_ALLOWED_USER_IDS", "allowed_user_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"group not numeric", "TELEGRAM_GROUP_ID", "not-a-number"},
		{"bad user id", "TELEGRAM_ALLOWED_USER_IDS", "42,abc"},
		{"zero max sessions", "TELEGRAM_MAX_SESSIONS", "0"},
		{"negative max sessions", "TELEGRAM_MAX_SESSIONS", "-2"},
		{"max sessions not numeric", "TELEGRAM_MAX_SESSIONS", "lots"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "remote.yaml")

	configContent := `
telegram:
  bot_token: "${TEST_REMOTE_TOKEN}"
  group_id: -100987
  allowed_user_ids: [7, 8]

opencode:
  base_url: "http://127.0.0.1:5555"

logging:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	t.Setenv("TEST_REMOTE_TOKEN", "file-token")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(-100987), cfg.Telegram.GroupID)
	assert.Equal(t, []int64{7, 8}, cfg.Telegram.AllowedUserIDs)
	assert.Equal(t, "http://127.0.0.1:5555", cfg.OpenCode.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "remote.yaml")

	configContent := `
telegram:
  bot_token: "file-token"
  group_id: -100987
  allowed_user_ids: [7]
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(-100987), cfg.Telegram.GroupID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestParseUserIDs(t *testing.T) {
	ids, err := ParseUserIDs(" 1, 2 ,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = ParseUserIDs("1,x")
	require.Error(t, err)
}
