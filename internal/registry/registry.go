// ABOUTME: In-memory bijective mapping between OpenCode sessions and forum topics
// ABOUTME: Reverse-indexed tables for O(1) lookup in either direction

package registry

import "sync"

// GeneralTopicID is the platform's reserved "general" topic. It is never a
// session topic and must never be included in bulk-delete operations.
const GeneralTopicID = 1

// Registry maps assistant session ids to Telegram forum topic ids and back.
// Create overwrites any prior mapping at either key, which keeps startup
// reconciliation idempotent: re-creating an existing pair is a no-op in
// effect. Callers are responsible for not creating conflicting pairs.
type Registry struct {
	mu             sync.RWMutex
	topicToSession map[int]string
	sessionToTopic map[string]int
	titles         map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		topicToSession: make(map[int]string),
		sessionToTopic: make(map[string]int),
		titles:         make(map[string]string),
	}
}

// Create inserts a bijective topic/session pair, overwriting any prior
// mapping at either key.
func (r *Registry) Create(topicID int, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topicToSession[topicID] = sessionID
	r.sessionToTopic[sessionID] = topicID
}

// SessionFor returns the session bound to a topic.
func (r *Registry) SessionFor(topicID int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.topicToSession[topicID]
	return id, ok
}

// TopicFor returns the topic bound to a session.
func (r *Registry) TopicFor(sessionID string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sessionToTopic[sessionID]
	return id, ok
}

// AllTopics returns a snapshot of every known topic id.
func (r *Registry) AllTopics() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]int, 0, len(r.topicToSession))
	for id := range r.topicToSession {
		topics = append(topics, id)
	}
	return topics
}

// SetTitle caches a session's human-friendly title.
func (r *Registry) SetTitle(sessionID, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles[sessionID] = title
}

// Title returns the cached title for a session, if any.
func (r *Registry) Title(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.titles[sessionID]
	return t, ok
}

// ClearAll empties both indices and the title cache.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topicToSession = make(map[int]string)
	r.sessionToTopic = make(map[string]int)
	r.titles = make(map[string]string)
}
