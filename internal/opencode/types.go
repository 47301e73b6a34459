// ABOUTME: Wire types for the OpenCode assistant runtime API
// ABOUTME: Sessions, messages, and streamed message parts

package opencode

// Session is a unit of ongoing work tracked by the runtime.
type Session struct {
	ID    string      `json:"id"`
	Title string      `json:"title,omitempty"`
	Time  SessionTime `json:"time"`
}

// SessionTime carries millisecond timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageInfo describes a message within a session.
type MessageInfo struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"`
	Time      MessageTime `json:"time"`
}

// MessageTime carries message lifecycle timestamps. Completed is non-zero
// once an assistant response has finished streaming.
type MessageTime struct {
	Created   int64 `json:"created"`
	Completed int64 `json:"completed,omitempty"`
}

// PartTypeText identifies text parts within a streamed message.
const PartTypeText = "text"

// Part is one piece of a streamed message.
type Part struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
}
