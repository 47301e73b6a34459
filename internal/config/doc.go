// Package config handles configuration loading for the telegram-remote
// bridge.
//
// # Overview
//
// Configuration is environment-first: every key can be supplied through a
// flat environment variable. An optional YAML file (pointed at by
// TELEGRAM_REMOTE_CONFIG or an explicit path) provides the same keys in
// structured form, with ${VAR_NAME} expansion; environment variables win
// over file values.
//
// # Environment Surface
//
//	TELEGRAM_BOT_TOKEN         bot credential (required, non-empty)
//	TELEGRAM_GROUP_ID          target group id (required, numeric)
//	TELEGRAM_ALLOWED_USER_IDS  comma-separated numeric ids (required, >= 1)
//	TELEGRAM_MAX_SESSIONS      reconciler session cap (optional, default 5)
//	OPENCODE_BASE_URL          assistant runtime endpoint
//	NOTIFY_WORKER_URL          completion-notification relay (optional)
//	NOTIFY_INSTALL_KEY         install key for the relay (optional)
//	LOG_LEVEL, LOG_FORMAT, LOG_DIR
//
// # Validation
//
// Load() fails fast with a descriptive error on the first violation; the
// process must not start with a partial configuration.
package config
