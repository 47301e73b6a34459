// ABOUTME: Inbound Telegram update loop and command dispatch for the bridge
// ABOUTME: Enforces the user allow-list and drives session creation and forwarding

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/registry"
	"github.com/opencode-remote/telegram-remote/internal/telegram"
)

// Runtime is the assistant-runtime surface the bot consumes.
type Runtime interface {
	CreateSession(ctx context.Context) (*opencode.Session, error)
	ListSessions(ctx context.Context) ([]opencode.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	SendPrompt(ctx context.Context, sessionID, text string) error
}

const (
	pollTimeout   = 30 * time.Second
	pollRetryWait = 2 * time.Second
)

// Bot consumes Telegram updates for the configured group and reacts to
// commands and free text from allowed operators.
type Bot struct {
	gateway  *Gateway
	runtime  Runtime
	registry *registry.Registry
	groupID  int64
	allowed  map[int64]struct{}
	logger   *slog.Logger
}

// New creates a Bot. allowedUserIDs must be non-empty; anything else is a
// configuration error caught before construction.
func New(gateway *Gateway, runtime Runtime, reg *registry.Registry, groupID int64, allowedUserIDs []int64, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[int64]struct{}, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = struct{}{}
	}
	return &Bot{
		gateway:  gateway,
		runtime:  runtime,
		registry: reg,
		groupID:  groupID,
		allowed:  allowed,
		logger:   logger.With("component", "bot"),
	}
}

// Run long-polls for updates until ctx is cancelled. The pending-update
// backlog is discarded at startup so stale commands do not replay, then a
// temporary "Messaging enabled" notice is posted to the group.
func (b *Bot) Run(ctx context.Context) error {
	offset, err := b.dropPendingUpdates(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("failed to drop pending updates", "error", err)
	}

	b.gateway.SendTemporaryMessage(ctx, "Messaging enabled", DefaultTemporaryTTL)
	b.logger.Info("update polling started", "group_id", b.groupID)

	for {
		updates, err := b.gateway.api.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("getUpdates failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryWait):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// dropPendingUpdates fetches the backlog tail and returns the next offset.
func (b *Bot) dropPendingUpdates(ctx context.Context) (int64, error) {
	updates, err := b.gateway.api.GetUpdates(ctx, -1, 0)
	if err != nil {
		return 0, err
	}
	var offset int64
	for _, update := range updates {
		if update.UpdateID >= offset {
			offset = update.UpdateID + 1
		}
	}
	return offset, nil
}

// HandleUpdate processes one inbound update: allow-list middleware first,
// then group filtering, then command/text dispatch.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	// Unauthorized senders are dropped silently: a log entry only, no
	// user-visible reply.
	if msg.From == nil {
		return
	}
	if _, ok := b.allowed[msg.From.ID]; !ok {
		b.logger.Warn("unauthorized user attempted access", "user_id", msg.From.ID)
		return
	}

	if msg.Chat.ID != b.groupID {
		return
	}

	switch command(msg.Text) {
	case "new":
		b.handleNew(ctx, msg)
	case "cleartopics":
		b.handleClearTopics(ctx, msg)
	case "deletesessions":
		b.handleDeleteSessions(ctx, msg)
	case "help":
		b.handleHelp(ctx, msg)
	case "":
		b.handleText(ctx, msg)
	default:
		// Unknown commands are ignored, matching the platform convention
		// that another bot in the group may own them.
	}
}

// command extracts the bare command name from a message, or "" for free
// text. Handles the /cmd@botname addressing form.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "unknown"
	}
	return name
}

// reply sends text into the same topic the inbound message came from.
func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	if err := b.gateway.SendMessage(ctx, msg.MessageThreadID, text); err != nil {
		b.logger.Error("failed to send reply", "topic_id", msg.MessageThreadID, "error", err)
	}
}

func (b *Bot) handleNew(ctx context.Context, msg *telegram.Message) {
	session, err := b.runtime.CreateSession(ctx)
	if err != nil {
		b.logger.Error("failed to create session", "error", err)
		b.reply(ctx, msg, "❌ Failed to create session")
		return
	}

	topicName := TopicName(SessionDisplayTitle(*session))
	topicID, err := b.gateway.CreateTopic(ctx, topicName)
	if err != nil {
		b.logger.Error("failed to create topic for new session",
			"session_id", session.ID, "topic_name", topicName, "error", err)
		b.reply(ctx, msg, "❌ Failed to create session")
		return
	}

	b.registry.Create(topicID, session.ID)
	if session.Title != "" {
		b.registry.SetTitle(session.ID, session.Title)
	}

	b.logger.Info("created new session with topic",
		"session_id", session.ID, "topic_id", topicID, "topic_name", topicName)

	if err := b.gateway.SendMessage(ctx, topicID, "✅ Session created: "+session.ID); err != nil {
		b.logger.Error("failed to announce new session", "session_id", session.ID, "error", err)
	}
}

// clearTopics deletes every known topic except the reserved general
// thread, then empties the registry. Returns deleted/failed counts.
func (b *Bot) clearTopics(ctx context.Context) (deleted, failed int) {
	for _, topicID := range b.registry.AllTopics() {
		if topicID == registry.GeneralTopicID {
			continue
		}
		if err := b.gateway.DeleteTopic(ctx, topicID); err != nil {
			failed++
			b.logger.Error("failed to delete forum topic", "topic_id", topicID, "error", err)
			continue
		}
		deleted++
	}
	b.registry.ClearAll()
	return deleted, failed
}

func (b *Bot) handleClearTopics(ctx context.Context, msg *telegram.Message) {
	hasTopics := false
	for _, id := range b.registry.AllTopics() {
		if id != registry.GeneralTopicID {
			hasTopics = true
			break
		}
	}
	if !hasTopics {
		b.reply(ctx, msg, "No topics to clear.")
		return
	}

	deleted, failed := b.clearTopics(ctx)
	if failed > 0 {
		b.reply(ctx, msg, fmt.Sprintf("Cleared %d topics, %d failed.", deleted, failed))
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Cleared %d topics.", deleted))
}

func (b *Bot) handleDeleteSessions(ctx context.Context, msg *telegram.Message) {
	sessions, err := b.runtime.ListSessions(ctx)
	if err != nil {
		b.logger.Error("failed to list sessions", "error", err)
		b.reply(ctx, msg, "❌ Failed to list sessions")
		return
	}

	var deletedSessions, failedSessions int
	for _, session := range sessions {
		if err := b.runtime.DeleteSession(ctx, session.ID); err != nil {
			failedSessions++
			b.logger.Error("failed to delete session", "session_id", session.ID, "error", err)
			continue
		}
		deletedSessions++
	}

	deletedTopics, failedTopics := b.clearTopics(ctx)

	b.reply(ctx, msg, fmt.Sprintf(
		"Deleted %d sessions (%d failed). Cleared %d topics (%d failed).",
		deletedSessions, failedSessions, deletedTopics, failedTopics))
}

func (b *Bot) handleHelp(ctx context.Context, msg *telegram.Message) {
	b.reply(ctx, msg, strings.Join([]string{
		"Commands:",
		"/new - create a session with its own topic",
		"/cleartopics - delete all session topics",
		"/deletesessions - delete all sessions and their topics",
		"/help - show this message",
		"",
		"Send text inside a session topic to prompt the assistant.",
	}, "\n"))
}

// handleText forwards free text to the session bound to the current topic,
// lazily creating a session for topics that do not have one yet.
func (b *Bot) handleText(ctx context.Context, msg *telegram.Message) {
	if msg.MessageThreadID == 0 {
		b.reply(ctx, msg, "Nothing I can do with this "+msg.Text)
		return
	}

	sessionID, ok := b.registry.SessionFor(msg.MessageThreadID)
	if !ok {
		session, err := b.runtime.CreateSession(ctx)
		if err != nil {
			b.logger.Error("failed to create session", "error", err)
			b.reply(ctx, msg, "❌ Failed to initialize session")
			return
		}
		sessionID = session.ID
		b.registry.Create(msg.MessageThreadID, sessionID)
		b.logger.Info("auto-created session for existing topic",
			"session_id", sessionID, "topic_id", msg.MessageThreadID)
	}

	if err := b.runtime.SendPrompt(ctx, sessionID, msg.Text); err != nil {
		b.logger.Error("failed to forward message to runtime",
			"session_id", sessionID, "error", err)
		b.reply(ctx, msg, "❌ Failed to process message")
		return
	}

	b.logger.Debug("forwarded message to runtime",
		"session_id", sessionID, "topic_id", msg.MessageThreadID)
}
