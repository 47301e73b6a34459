// ABOUTME: Configuration loading for the telegram-remote bridge
// ABOUTME: Env-first flat key-value config with optional YAML file and validation

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSessions bounds how many sessions the startup reconciler binds.
const DefaultMaxSessions = 5

// DefaultThrottleInterval is the minimum spacing between outbound Telegram calls.
const DefaultThrottleInterval = 500 * time.Millisecond

// Config holds the complete bridge configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	OpenCode OpenCodeConfig `yaml:"opencode"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TelegramConfig holds the bot credential and group/topic settings.
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	GroupID        int64   `yaml:"group_id"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
	MaxSessions    int     `yaml:"max_sessions"`

	// Raw comma-separated form, used when values come from the environment
	AllowedUserIDsRaw string `yaml:"-"`
}

// OpenCodeConfig holds the assistant runtime endpoint.
type OpenCodeConfig struct {
	BaseURL string `yaml:"base_url"`
}

// NotifyConfig holds the optional completion-notification relay settings.
// Both fields must be set for notifications to be sent.
type NotifyConfig struct {
	WorkerURL  string `yaml:"worker_url"`
	InstallKey string `yaml:"install_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// Load builds the configuration. If path is non-empty (or the
// TELEGRAM_REMOTE_CONFIG environment variable points at a file), the YAML
// file is read first with ${VAR} expansion; environment variables then
// override individual keys. Validation failures are fatal to startup.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("TELEGRAM_REMOTE_CONFIG")
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{MaxSessions: DefaultMaxSessions},
		OpenCode: OpenCodeConfig{BaseURL: "http://127.0.0.1:4096"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv overlays the flat environment variable surface onto cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_GROUP_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_GROUP_ID must be a valid number, got %q", v)
		}
		cfg.Telegram.GroupID = id
	}
	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		ids, err := ParseUserIDs(v)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS: %w", err)
		}
		cfg.Telegram.AllowedUserIDs = ids
	}
	if v := os.Getenv("TELEGRAM_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("TELEGRAM_MAX_SESSIONS must be a positive integer, got %q", v)
		}
		cfg.Telegram.MaxSessions = n
	}
	if v := os.Getenv("OPENCODE_BASE_URL"); v != "" {
		cfg.OpenCode.BaseURL = v
	}
	if v := os.Getenv("NOTIFY_WORKER_URL"); v != "" {
		cfg.Notify.WorkerURL = v
	}
	if v := os.Getenv("NOTIFY_INSTALL_KEY"); v != "" {
		cfg.Notify.InstallKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	return nil
}

// ParseUserIDs parses a comma-separated list of numeric Telegram user ids.
// Blank entries are skipped; a non-numeric entry is an error.
func ParseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first violation encountered.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("telegram.bot_token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.GroupID == 0 {
		return fmt.Errorf("telegram.group_id is required (TELEGRAM_GROUP_ID)")
	}
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return fmt.Errorf("telegram.allowed_user_ids requires at least one entry (TELEGRAM_ALLOWED_USER_IDS)")
	}
	if c.Telegram.MaxSessions <= 0 {
		return fmt.Errorf("telegram.max_sessions must be a positive integer")
	}
	if strings.TrimSpace(c.OpenCode.BaseURL) == "" {
		return fmt.Errorf("opencode.base_url is required")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}
	return nil
}

// NotifyEnabled reports whether completion notifications are configured.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.WorkerURL != "" && c.Notify.InstallKey != ""
}
