// ABOUTME: Tests for the runtime-to-Telegram event relay
// ABOUTME: Covers delta streaming, document delivery, and idle notices

package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/registry"
	"github.com/opencode-remote/telegram-remote/internal/tracker"
)

type sentText struct {
	topicID int
	text    string
}

type fakeChat struct {
	mu        sync.Mutex
	messages  []sentText
	documents []sentText
	temporary []string
	sendErr   error
}

func (f *fakeChat) SendMessage(ctx context.Context, topicID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentText{topicID: topicID, text: text})
	return nil
}

func (f *fakeChat) SendDocument(ctx context.Context, topicID int, content []byte, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, sentText{topicID: topicID, text: filename + ":" + string(content)})
	return nil
}

func (f *fakeChat) SendTemporaryMessage(ctx context.Context, text string, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temporary = append(f.temporary, text)
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.notified = append(f.notified, text)
	return nil
}

// scriptedSource replays event batches, one batch per Events call.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][]opencode.Event
	errs    []error
	calls   int
}

func (s *scriptedSource) Events(ctx context.Context, out chan<- opencode.Event) error {
	s.mu.Lock()
	s.calls++
	var batch []opencode.Event
	var err error
	if len(s.batches) > 0 {
		batch = s.batches[0]
		s.batches = s.batches[1:]
	}
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	s.mu.Unlock()

	for _, ev := range batch {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if batch == nil && err == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func newTestRelay(chat *fakeChat, reg *registry.Registry, notifier Notifier) (*Relay, *tracker.Tracker) {
	track := tracker.New(nil)
	return New(&scriptedSource{}, chat, reg, track, notifier, nil), track
}

func TestSessionCreated_AnnouncesWhenTopicBound(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_0123456789")
	r, _ := newTestRelay(chat, reg, nil)

	r.HandleEvent(context.Background(), opencode.SessionCreatedEvent{
		Session: opencode.Session{ID: "ses_0123456789", Title: "Deploy"},
	})

	require.Len(t, chat.messages, 1)
	assert.Equal(t, 55, chat.messages[0].topicID)
	assert.Equal(t, "✅ Session initialized: ses_0123", chat.messages[0].text)

	title, ok := reg.Title("ses_0123456789")
	require.True(t, ok)
	assert.Equal(t, "Deploy", title)
}

func TestSessionCreated_NoTopicIsSilent(t *testing.T) {
	chat := &fakeChat{}
	r, _ := newTestRelay(chat, registry.New(), nil)

	r.HandleEvent(context.Background(), opencode.SessionCreatedEvent{
		Session: opencode.Session{ID: "ses_x"},
	})

	assert.Empty(t, chat.messages)
}

func TestSessionUpdated_CachesTitle(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	r, _ := newTestRelay(chat, reg, nil)

	r.HandleEvent(context.Background(), opencode.SessionUpdatedEvent{
		Session: opencode.Session{ID: "ses_x", Title: "Renamed"},
	})

	title, ok := reg.Title("ses_x")
	require.True(t, ok)
	assert.Equal(t, "Renamed", title)
}

func TestPartUpdated_ForwardsAssistantDelta(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	r, track := newTestRelay(chat, reg, nil)
	track.MarkAssistant("m1")

	r.HandleEvent(context.Background(), opencode.MessagePartUpdatedEvent{
		Part:  opencode.Part{ID: "p1", MessageID: "m1", SessionID: "ses_a", Type: opencode.PartTypeText},
		Delta: "working on it",
	})

	require.Len(t, chat.messages, 1)
	assert.Equal(t, sentText{topicID: 55, text: "working on it"}, chat.messages[0])
	assert.Equal(t, "working on it", track.Content("m1"))
}

func TestPartUpdated_IgnoresNonAssistantAndNonText(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	r, track := newTestRelay(chat, reg, nil)

	// Not tracked as assistant.
	r.HandleEvent(context.Background(), opencode.MessagePartUpdatedEvent{
		Part:  opencode.Part{MessageID: "m1", SessionID: "ses_a", Type: opencode.PartTypeText},
		Delta: "hi",
	})

	// Assistant, but not a text part.
	track.MarkAssistant("m2")
	r.HandleEvent(context.Background(), opencode.MessagePartUpdatedEvent{
		Part:  opencode.Part{MessageID: "m2", SessionID: "ses_a", Type: "tool"},
		Delta: "hi",
	})

	assert.Empty(t, chat.messages)
	assert.Empty(t, track.Content("m1"))
}

func TestPartUpdated_DropsWhenNoTopicBound(t *testing.T) {
	chat := &fakeChat{}
	r, track := newTestRelay(chat, registry.New(), nil)
	track.MarkAssistant("m1")

	r.HandleEvent(context.Background(), opencode.MessagePartUpdatedEvent{
		Part:  opencode.Part{MessageID: "m1", SessionID: "ses_unbound", Type: opencode.PartTypeText},
		Delta: "hi",
	})

	assert.Empty(t, chat.messages)
	assert.Empty(t, track.Content("m1"), "unbound deltas are dropped before accumulation")
}

func TestPartUpdated_WhitespaceDeltaAccumulatedNotForwarded(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	r, track := newTestRelay(chat, reg, nil)
	track.MarkAssistant("m1")

	r.HandleEvent(context.Background(), opencode.MessagePartUpdatedEvent{
		Part:  opencode.Part{MessageID: "m1", SessionID: "ses_a", Type: opencode.PartTypeText},
		Delta: "\n\n",
	})

	assert.Empty(t, chat.messages)
	assert.Equal(t, "\n\n", track.Content("m1"))
}

func TestMessageUpdated_RoleTransitions(t *testing.T) {
	chat := &fakeChat{}
	r, track := newTestRelay(chat, registry.New(), nil)

	r.HandleEvent(context.Background(), opencode.MessageUpdatedEvent{
		Message: opencode.MessageInfo{ID: "m1", SessionID: "ses_a", Role: opencode.RoleUser},
	})
	assert.True(t, track.IsUser("m1"))

	r.HandleEvent(context.Background(), opencode.MessageUpdatedEvent{
		Message: opencode.MessageInfo{ID: "m1", SessionID: "ses_a", Role: opencode.RoleAssistant},
	})
	assert.True(t, track.IsAssistant("m1"))
	assert.False(t, track.IsUser("m1"))
}

func TestMessageUpdated_ShortResponseClearsWithoutDocument(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	r, track := newTestRelay(chat, reg, nil)
	track.MarkAssistant("m1")
	track.AppendContent("m1", "short answer\nwith two lines")

	r.HandleEvent(context.Background(), opencode.MessageUpdatedEvent{
		Message: opencode.MessageInfo{
			ID: "m1", SessionID: "ses_a", Role: opencode.RoleAssistant,
			Time: opencode.MessageTime{Created: 1, Completed: 2},
		},
	})

	assert.Empty(t, chat.documents)
	assert.Empty(t, track.Content("m1"), "content is cleared at completion")
}

func TestMessageUpdated_LongResponseDeliveredAsDocument(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	r, track := newTestRelay(chat, reg, nil)
	track.MarkAssistant("m1")

	long := strings.Repeat("line\n", DocumentLineThreshold) + "last"
	track.AppendContent("m1", long)

	r.HandleEvent(context.Background(), opencode.MessageUpdatedEvent{
		Message: opencode.MessageInfo{
			ID: "m1", SessionID: "ses_a", Role: opencode.RoleAssistant,
			Time: opencode.MessageTime{Created: 1, Completed: 2},
		},
	})

	require.Len(t, chat.documents, 1)
	assert.Equal(t, 55, chat.documents[0].topicID)
	assert.True(t, strings.HasPrefix(chat.documents[0].text, "response.md:"))
	assert.Empty(t, track.Content("m1"))
}

func TestMessageUpdated_IncompleteAssistantKeepsContent(t *testing.T) {
	chat := &fakeChat{}
	r, track := newTestRelay(chat, registry.New(), nil)
	track.MarkAssistant("m1")
	track.AppendContent("m1", "partial")

	r.HandleEvent(context.Background(), opencode.MessageUpdatedEvent{
		Message: opencode.MessageInfo{ID: "m1", SessionID: "ses_a", Role: opencode.RoleAssistant},
	})

	assert.Equal(t, "partial", track.Content("m1"))
}

func TestSessionIdle_TemporaryNoticeAndNotification(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.SetTitle("ses_a", "Deploy helper")
	notifier := &fakeNotifier{}
	track := tracker.New(nil)
	r := New(&scriptedSource{}, chat, reg, track, notifier, nil)

	r.HandleEvent(context.Background(), opencode.SessionIdleEvent{SessionID: "ses_a"})

	require.Len(t, chat.temporary, 1)
	assert.Equal(t, "Agent has finished: Deploy helper", chat.temporary[0])
	assert.Equal(t, []string{"Agent has finished: Deploy helper"}, notifier.notified)
}

func TestSessionIdle_UntitledSessionAndFailedNotifier(t *testing.T) {
	chat := &fakeChat{}
	notifier := &fakeNotifier{err: errors.New("worker unreachable")}
	track := tracker.New(nil)
	r := New(&scriptedSource{}, chat, registry.New(), track, notifier, nil)

	r.HandleEvent(context.Background(), opencode.SessionIdleEvent{SessionID: "ses_a"})

	require.Len(t, chat.temporary, 1)
	assert.Equal(t, "Agent has finished", chat.temporary[0])
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 0, lineCount(""))
	assert.Equal(t, 1, lineCount("one"))
	assert.Equal(t, 2, lineCount("one\ntwo"))
	assert.Equal(t, 2, lineCount("one\n"))
}

func TestRun_ProcessesEventsAndReconnects(t *testing.T) {
	chat := &fakeChat{}
	reg := registry.New()
	reg.Create(55, "ses_a")
	track := tracker.New(nil)
	track.MarkAssistant("m1")

	source := &scriptedSource{
		batches: [][]opencode.Event{
			{opencode.MessagePartUpdatedEvent{
				Part:  opencode.Part{MessageID: "m1", SessionID: "ses_a", Type: opencode.PartTypeText},
				Delta: "first",
			}},
			{opencode.MessagePartUpdatedEvent{
				Part:  opencode.Part{MessageID: "m1", SessionID: "ses_a", Type: opencode.PartTypeText},
				Delta: "second",
			}},
		},
		errs: []error{errors.New("stream reset"), nil},
	}
	r := New(source, chat, reg, track, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		chat.mu.Lock()
		defer chat.mu.Unlock()
		return len(chat.messages) == 2
	}, 10*time.Second, 20*time.Millisecond, "both batches must be processed across the reconnect")

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, "first", chat.messages[0].text)
	assert.Equal(t, "second", chat.messages[1].text)
}
