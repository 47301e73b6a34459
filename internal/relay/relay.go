// ABOUTME: Streaming event relay from the OpenCode runtime into Telegram topics
// ABOUTME: Dispatches the event union and forwards assistant deltas as they arrive

package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/registry"
	"github.com/opencode-remote/telegram-remote/internal/tracker"
)

// DocumentLineThreshold is the completed-response line count above which
// the accumulated content is delivered as a file attachment instead of
// staying as individual streamed messages.
const DocumentLineThreshold = 100

const (
	reconnectBackoff    = time.Second
	maxReconnectBackoff = 30 * time.Second
)

// ChatGateway is the outbound surface the relay writes through.
type ChatGateway interface {
	SendMessage(ctx context.Context, topicID int, text string) error
	SendDocument(ctx context.Context, topicID int, content []byte, filename string) error
	SendTemporaryMessage(ctx context.Context, text string, ttl time.Duration)
}

// EventSource is the runtime-side subscription the relay consumes.
type EventSource interface {
	Events(ctx context.Context, out chan<- opencode.Event) error
}

// Notifier delivers out-of-band completion notifications. Optional and
// best-effort: failures never affect relay processing.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Relay turns runtime events into Telegram topic traffic: streamed
// assistant deltas are forwarded immediately, completed long responses are
// re-delivered as documents, and idle transitions post a transient notice.
type Relay struct {
	source   EventSource
	gateway  ChatGateway
	registry *registry.Registry
	tracker  *tracker.Tracker
	notifier Notifier
	logger   *slog.Logger
}

// New creates a Relay. notifier may be nil when no notification worker is
// configured.
func New(source EventSource, gateway ChatGateway, reg *registry.Registry, track *tracker.Tracker, notifier Notifier, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		source:   source,
		gateway:  gateway,
		registry: reg,
		tracker:  track,
		notifier: notifier,
		logger:   logger.With("component", "relay"),
	}
}

// Run subscribes to the runtime event stream and processes events until ctx
// is cancelled, reconnecting with exponential backoff when the stream drops.
func (r *Relay) Run(ctx context.Context) error {
	backoff := reconnectBackoff
	for {
		events := make(chan opencode.Event, 64)
		streamDone := make(chan error, 1)
		go func() {
			streamDone <- r.source.Events(ctx, events)
		}()

		err := r.consume(ctx, events, streamDone)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("event stream ended, reconnecting",
			"error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxReconnectBackoff)
	}
}

// consume processes events until the subscription goroutine reports the
// stream is over, draining anything still buffered.
func (r *Relay) consume(ctx context.Context, events <-chan opencode.Event, done <-chan error) error {
	for {
		select {
		case event := <-events:
			r.HandleEvent(ctx, event)
		case err := <-done:
			for {
				select {
				case event := <-events:
					r.HandleEvent(ctx, event)
				default:
					return err
				}
			}
		case <-ctx.Done():
			return <-done
		}
	}
}

// HandleEvent dispatches one runtime event. Errors inside handlers are
// logged, never propagated: a failing send must not stall the stream.
func (r *Relay) HandleEvent(ctx context.Context, event opencode.Event) {
	switch ev := event.(type) {
	case opencode.SessionCreatedEvent:
		r.handleSessionCreated(ctx, ev)
	case opencode.SessionUpdatedEvent:
		if ev.Session.Title != "" {
			r.registry.SetTitle(ev.Session.ID, ev.Session.Title)
		}
	case opencode.MessageUpdatedEvent:
		r.handleMessageUpdated(ctx, ev)
	case opencode.MessagePartUpdatedEvent:
		r.handlePartUpdated(ctx, ev)
	case opencode.SessionIdleEvent:
		r.handleSessionIdle(ctx, ev)
	}
}

// shortID returns the first 8 characters of a session id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (r *Relay) handleSessionCreated(ctx context.Context, ev opencode.SessionCreatedEvent) {
	if ev.Session.Title != "" {
		r.registry.SetTitle(ev.Session.ID, ev.Session.Title)
	}

	topicID, ok := r.registry.TopicFor(ev.Session.ID)
	if !ok {
		// No topic yet: the /new handler or the reconciler will bind one.
		r.logger.Debug("session created without bound topic", "session_id", ev.Session.ID)
		return
	}
	if err := r.gateway.SendMessage(ctx, topicID, "✅ Session initialized: "+shortID(ev.Session.ID)); err != nil {
		r.logger.Error("failed to announce session",
			"session_id", ev.Session.ID, "topic_id", topicID, "error", err)
	}
}

func (r *Relay) handleMessageUpdated(ctx context.Context, ev opencode.MessageUpdatedEvent) {
	msg := ev.Message
	switch msg.Role {
	case opencode.RoleUser:
		r.tracker.MarkUser(msg.ID)
	case opencode.RoleAssistant:
		r.tracker.MarkAssistant(msg.ID)
		if msg.Time.Completed == 0 {
			return
		}
		r.finishAssistantMessage(ctx, msg)
	}
}

// finishAssistantMessage runs once per completed assistant response: long
// accumulations go out as a markdown attachment, then tracked content is
// discarded either way.
func (r *Relay) finishAssistantMessage(ctx context.Context, msg opencode.MessageInfo) {
	defer r.tracker.ClearContent(msg.ID)

	content := r.tracker.Content(msg.ID)
	if lineCount(content) <= DocumentLineThreshold {
		return
	}

	topicID, ok := r.registry.TopicFor(msg.SessionID)
	if !ok {
		r.logger.Warn("no topic bound for completed response",
			"session_id", msg.SessionID, "message_id", msg.ID)
		return
	}
	if err := r.gateway.SendDocument(ctx, topicID, []byte(content), "response.md"); err != nil {
		r.logger.Error("failed to deliver response document",
			"session_id", msg.SessionID, "message_id", msg.ID, "error", err)
	}
}

func (r *Relay) handlePartUpdated(ctx context.Context, ev opencode.MessagePartUpdatedEvent) {
	part := ev.Part
	if part.Type != opencode.PartTypeText {
		return
	}
	if !r.tracker.IsAssistant(part.MessageID) {
		return
	}

	topicID, ok := r.registry.TopicFor(part.SessionID)
	if !ok {
		r.logger.Warn("no topic bound for session, dropping delta",
			"session_id", part.SessionID, "message_id", part.MessageID)
		return
	}

	// The ceiling governs the tracked accumulation only; streaming each
	// delta into the topic continues regardless.
	r.tracker.AppendContent(part.MessageID, ev.Delta)

	if strings.TrimSpace(ev.Delta) == "" {
		return
	}
	if err := r.gateway.SendMessage(ctx, topicID, ev.Delta); err != nil {
		r.logger.Error("failed to forward delta",
			"session_id", part.SessionID, "topic_id", topicID, "error", err)
	}
}

func (r *Relay) handleSessionIdle(ctx context.Context, ev opencode.SessionIdleEvent) {
	text := "Agent has finished"
	if title, ok := r.registry.Title(ev.SessionID); ok && title != "" {
		text += ": " + title
	}

	r.gateway.SendTemporaryMessage(ctx, text, 0)

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, text); err != nil {
			r.logger.Debug("notification delivery failed", "error", err)
		}
	}
}

// lineCount counts newline-separated lines; empty content has zero lines.
func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
