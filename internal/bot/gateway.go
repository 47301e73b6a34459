// ABOUTME: Chat gateway exposing the semantic Telegram operations the bridge needs
// ABOUTME: Routes every outbound call through the shared throttler

package bot

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/telegram"
	"github.com/opencode-remote/telegram-remote/internal/throttle"
)

// TopicNameLimit is the platform's display-name length limit for topics.
const TopicNameLimit = 100

// DefaultTemporaryTTL is how long a temporary message stays visible.
const DefaultTemporaryTTL = time.Second

// API is the subset of the Telegram client the gateway drives.
type API interface {
	SendMessage(ctx context.Context, chatID int64, threadID int, text string) (*telegram.Message, error)
	SendDocument(ctx context.Context, chatID int64, threadID int, content []byte, filename string) (*telegram.Message, error)
	CreateForumTopic(ctx context.Context, chatID int64, name string) (*telegram.ForumTopic, error)
	DeleteForumTopic(ctx context.Context, chatID int64, threadID int) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Gateway wraps the Telegram client for a single fixed group. All writes
// are serialized through the throttler so the pacing invariant holds no
// matter how many call sites fire concurrently.
type Gateway struct {
	api       API
	throttler *throttle.Throttler
	groupID   int64
	logger    *slog.Logger
}

// NewGateway creates a Gateway bound to one group chat.
func NewGateway(api API, throttler *throttle.Throttler, groupID int64, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		api:       api,
		throttler: throttler,
		groupID:   groupID,
		logger:    logger.With("component", "gateway"),
	}
}

func await[T any](ctx context.Context, res <-chan throttle.Result[T]) (T, error) {
	select {
	case r := <-res:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// SendMessage delivers text into a topic of the configured group.
func (g *Gateway) SendMessage(ctx context.Context, topicID int, text string) error {
	res := throttle.Do(g.throttler, func() (*telegram.Message, error) {
		return g.api.SendMessage(ctx, g.groupID, topicID, text)
	})
	_, err := await(ctx, res)
	return err
}

// SendDocument wraps content as a file attachment and delivers it into a
// topic. Used when accumulated assistant output is too long for inline text.
func (g *Gateway) SendDocument(ctx context.Context, topicID int, content []byte, filename string) error {
	res := throttle.Do(g.throttler, func() (*telegram.Message, error) {
		return g.api.SendDocument(ctx, g.groupID, topicID, content, filename)
	})
	_, err := await(ctx, res)
	return err
}

// CreateTopic creates a new forum topic and returns its id. The name must
// already be within TopicNameLimit (see TopicName).
func (g *Gateway) CreateTopic(ctx context.Context, name string) (int, error) {
	res := throttle.Do(g.throttler, func() (*telegram.ForumTopic, error) {
		return g.api.CreateForumTopic(ctx, g.groupID, name)
	})
	topic, err := await(ctx, res)
	if err != nil {
		return 0, err
	}
	return topic.MessageThreadID, nil
}

// DeleteTopic removes a forum topic. Best-effort: callers count failures
// rather than aborting bulk operations.
func (g *Gateway) DeleteTopic(ctx context.Context, topicID int) error {
	return <-g.throttler.Enqueue(func() error {
		return g.api.DeleteForumTopic(ctx, g.groupID, topicID)
	})
}

// ListTopics returns the group's existing forum topics. The Bot API has no
// method to enumerate topics, so this always reports an empty list; the
// reconciler treats that as valid and creates topics on demand.
func (g *Gateway) ListTopics(ctx context.Context) ([]telegram.ForumTopic, error) {
	g.logger.Debug("forum topic listing not available via Bot API, returning empty list")
	return nil, nil
}

// SendTemporaryMessage sends text to the group's general thread and
// schedules its deletion after ttl. Deletion failures are swallowed (the
// message may already be gone) and pending deletions lapse silently when
// ctx is cancelled.
func (g *Gateway) SendTemporaryMessage(ctx context.Context, text string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTemporaryTTL
	}
	res := throttle.Do(g.throttler, func() (*telegram.Message, error) {
		return g.api.SendMessage(ctx, g.groupID, 0, text)
	})

	go func() {
		msg, err := await(ctx, res)
		if err != nil {
			g.logger.Warn("failed to send temporary message", "error", err)
			return
		}

		timer := time.NewTimer(ttl)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := <-g.throttler.Enqueue(func() error {
			return g.api.DeleteMessage(ctx, g.groupID, msg.MessageID)
		}); err != nil {
			g.logger.Debug("failed to delete temporary message",
				"message_id", msg.MessageID, "error", err)
		}
	}()
}

// TopicName truncates a title to the platform's topic display limit,
// replacing the tail with an ellipsis marker when it exceeds the limit.
func TopicName(title string) string {
	runes := []rune(title)
	if len(runes) <= TopicNameLimit {
		return title
	}
	return string(runes[:TopicNameLimit-3]) + "..."
}

// SessionDisplayTitle returns the session's title, or a fallback derived
// from the first 8 characters of its id.
func SessionDisplayTitle(session opencode.Session) string {
	if session.Title != "" {
		return session.Title
	}
	id := session.ID
	if utf8.RuneCountInString(id) > 8 {
		id = string([]rune(id)[:8])
	}
	return "Session " + id
}
