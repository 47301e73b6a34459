// ABOUTME: Tracks message roles (user vs assistant) and streamed assistant content
// ABOUTME: Enforces the hard content ceiling for accumulated deltas

package tracker

import (
	"log/slog"
	"sync"
)

// MaxContentSize is the hard ceiling for accumulated streamed content per
// message. Deltas that would push past it are dropped, not appended.
const MaxContentSize = 5 * 1024 * 1024

// Tracker classifies in-flight message ids by role and accumulates streamed
// text for assistant messages. Role flags are mutually exclusive per id.
type Tracker struct {
	mu        sync.Mutex
	user      map[string]struct{}
	assistant map[string]struct{}
	content   map[string]string
	logger    *slog.Logger
}

// New creates an empty Tracker.
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		user:      make(map[string]struct{}),
		assistant: make(map[string]struct{}),
		content:   make(map[string]string),
		logger:    logger.With("component", "tracker"),
	}
}

// MarkUser records the message as a user message, clearing any assistant
// flag and any accumulated content for the same id.
func (t *Tracker) MarkUser(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user[messageID] = struct{}{}
	delete(t.assistant, messageID)
	delete(t.content, messageID)
}

// MarkAssistant records the message as an assistant message, clearing the
// user flag. Accumulated content is kept: assistant messages are marked
// repeatedly while their parts stream in.
func (t *Tracker) MarkAssistant(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assistant[messageID] = struct{}{}
	delete(t.user, messageID)
}

// IsAssistant reports whether the id is currently tracked as assistant.
func (t *Tracker) IsAssistant(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.assistant[messageID]
	return ok
}

// IsUser reports whether the id is currently tracked as user.
func (t *Tracker) IsUser(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.user[messageID]
	return ok
}

// AppendContent appends a streamed delta to the message's accumulated
// content. Returns false, leaving stored content unchanged, when the
// append would exceed MaxContentSize.
func (t *Tracker) AppendContent(messageID, delta string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.content[messageID]
	if len(current)+len(delta) > MaxContentSize {
		t.logger.Warn("message content exceeded size ceiling, dropping delta",
			"message_id", messageID,
			"current_size", len(current),
			"delta_size", len(delta),
		)
		return false
	}
	t.content[messageID] = current + delta
	return true
}

// Content returns the accumulated content for the message.
func (t *Tracker) Content(messageID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content[messageID]
}

// ClearContent discards the accumulated content for the message.
func (t *Tracker) ClearContent(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.content, messageID)
}
