// Package bot owns the Telegram side of the bridge: the Gateway that
// serializes outbound API calls through the throttler, and the Bot that
// polls for updates, enforces the allow-list, and dispatches the operator
// commands (/new, /cleartopics, /deletesessions, /help) plus free-text
// prompts.
package bot
