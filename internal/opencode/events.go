// ABOUTME: Tagged-union event types published by the OpenCode runtime
// ABOUTME: Decodes the /event envelope into one strongly-typed variant per kind

package opencode

import (
	"encoding/json"
	"fmt"
)

// Event is a closed union of runtime events. Consumers dispatch with a
// type switch over the concrete variants; unknown kinds never reach them.
type Event interface {
	eventKind() string
}

// SessionCreatedEvent signals a new session.
type SessionCreatedEvent struct {
	Session Session
}

// SessionUpdatedEvent signals a session metadata change (title, timestamps).
type SessionUpdatedEvent struct {
	Session Session
}

// SessionIdleEvent signals the assistant has finished working on a session.
type SessionIdleEvent struct {
	SessionID string
}

// MessageUpdatedEvent signals a message role/lifecycle transition.
type MessageUpdatedEvent struct {
	Message MessageInfo
}

// MessagePartUpdatedEvent carries one incremental streamed fragment.
type MessagePartUpdatedEvent struct {
	Part  Part
	Delta string
}

func (SessionCreatedEvent) eventKind() string     { return "session.created" }
func (SessionUpdatedEvent) eventKind() string     { return "session.updated" }
func (SessionIdleEvent) eventKind() string        { return "session.idle" }
func (MessageUpdatedEvent) eventKind() string     { return "message.updated" }
func (MessagePartUpdatedEvent) eventKind() string { return "message.part.updated" }

// envelope is the raw shape of one event on the wire.
type envelope struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// decodeEvent parses a raw event payload. Returns (nil, nil) for event
// kinds the bridge does not consume.
func decodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	switch env.Type {
	case "session.created":
		var props struct {
			Info Session `json:"info"`
		}
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, fmt.Errorf("decoding session.created: %w", err)
		}
		return SessionCreatedEvent{Session: props.Info}, nil

	case "session.updated":
		var props struct {
			Info Session `json:"info"`
		}
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, fmt.Errorf("decoding session.updated: %w", err)
		}
		return SessionUpdatedEvent{Session: props.Info}, nil

	case "session.idle":
		var props struct {
			SessionID string `json:"sessionID"`
		}
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, fmt.Errorf("decoding session.idle: %w", err)
		}
		return SessionIdleEvent{SessionID: props.SessionID}, nil

	case "message.updated":
		var props struct {
			Info MessageInfo `json:"info"`
		}
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, fmt.Errorf("decoding message.updated: %w", err)
		}
		return MessageUpdatedEvent{Message: props.Info}, nil

	case "message.part.updated":
		var props struct {
			Part  Part   `json:"part"`
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, fmt.Errorf("decoding message.part.updated: %w", err)
		}
		return MessagePartUpdatedEvent{Part: props.Part, Delta: props.Delta}, nil
	}

	return nil, nil
}
