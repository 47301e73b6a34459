// ABOUTME: Startup reconciler binding existing runtime sessions to forum topics
// ABOUTME: Joins the two systems on display name and creates missing topics

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/opencode-remote/telegram-remote/internal/bot"
	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/registry"
	"github.com/opencode-remote/telegram-remote/internal/telegram"
)

// SessionLister is the runtime surface the reconciler reads from.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]opencode.Session, error)
}

// TopicGateway is the chat surface the reconciler binds topics through.
type TopicGateway interface {
	CreateTopic(ctx context.Context, name string) (int, error)
	ListTopics(ctx context.Context) ([]telegram.ForumTopic, error)
}

// Syncer reconciles runtime sessions with forum topics once at startup. It
// keeps only the most recently updated sessions (bounded by maxSessions)
// and joins them to existing topics by display name, creating topics for
// the rest. Per-session failures are logged and skipped.
type Syncer struct {
	runtime     SessionLister
	gateway     TopicGateway
	registry    *registry.Registry
	maxSessions int
	logger      *slog.Logger
}

// NewSyncer creates a Syncer keeping at most maxSessions sessions.
func NewSyncer(runtime SessionLister, gateway TopicGateway, reg *registry.Registry, maxSessions int, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		runtime:     runtime,
		gateway:     gateway,
		registry:    reg,
		maxSessions: maxSessions,
		logger:      logger.With("component", "sync"),
	}
}

// Sync runs one reconciliation pass. It does not clear mappings created
// concurrently by inbound commands; Create overwrites make the overlap
// harmless.
func (s *Syncer) Sync(ctx context.Context) error {
	sessions, err := s.runtime.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	topics, err := s.gateway.ListTopics(ctx)
	if err != nil {
		// An empty topic list is valid; a failed fetch degrades to the
		// same create-on-demand behavior.
		s.logger.Warn("failed to list topics, proceeding with none", "error", err)
		topics = nil
	}

	byName := make(map[string]int, len(topics))
	for _, topic := range topics {
		byName[topic.Name] = topic.MessageThreadID
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Time.Updated > sessions[j].Time.Updated
	})
	if len(sessions) > s.maxSessions {
		sessions = sessions[:s.maxSessions]
	}

	var bound, created, failed int
	for _, session := range sessions {
		name := bot.TopicName(bot.SessionDisplayTitle(session))

		topicID, ok := byName[name]
		if !ok {
			topicID, err = s.gateway.CreateTopic(ctx, name)
			if err != nil {
				failed++
				s.logger.Error("failed to create topic for session",
					"session_id", session.ID, "topic_name", name, "error", err)
				continue
			}
			created++
		} else {
			bound++
		}

		s.registry.Create(topicID, session.ID)
		if session.Title != "" {
			s.registry.SetTitle(session.ID, session.Title)
		}
	}

	s.logger.Info("session reconciliation complete",
		"sessions", len(sessions), "bound", bound, "created", created, "failed", failed)
	return nil
}
