// Package telegram is a minimal Telegram Bot API client.
//
// Only the methods the bridge needs are implemented: sendMessage,
// sendDocument, createForumTopic, deleteForumTopic, deleteMessage, getMe,
// and getUpdates long-polling. The Bot API offers no way to enumerate a
// group's forum topics; callers must treat the topic list as unknowable
// and create topics on demand.
//
// Rate limiting is deliberately not handled here; every call site routes
// through the bot package's gateway, which owns the single outbound
// throttler.
package telegram
