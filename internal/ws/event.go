package ws

import (
	"encoding/json"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
)

// EventType tags every frame exchanged over a chat connection
type EventType string

// Outbound event types. These are the only kinds a connection ever
// receives from the group, plus the one-time connection ack and pong.
const (
	EventTypeConnection EventType = "connection"
	EventTypeMessage    EventType = "message"
	EventTypePresence   EventType = "presence"
	EventTypePong       EventType = "pong"
)

// Inbound event types
const (
	EventTypePing   EventType = "ping"
	EventTypeTyping EventType = "typing"
)

// Event is an outbound frame sent to clients
type Event struct {
	Type           EventType                        `json:"type"`
	ConversationID uint64                           `json:"conversation_id,omitempty"`
	UserID         uint64                           `json:"user_id,omitempty"`
	Message        *domain.MessageResponse          `json:"message,omitempty"`
	State          *domain.ParticipantStateResponse `json:"state,omitempty"`
}

// NewConnectionEvent is the diagnostic ack sent once on successful open
func NewConnectionEvent(conversationID, userID uint64) *Event {
	return &Event{Type: EventTypeConnection, ConversationID: conversationID, UserID: userID}
}

// NewMessageEvent wraps a freshly created message for fan-out
func NewMessageEvent(msg *domain.MessageResponse) *Event {
	return &Event{Type: EventTypeMessage, Message: msg}
}

// NewPresenceEvent wraps a participant-state snapshot for fan-out
func NewPresenceEvent(state *domain.ParticipantStateResponse) *Event {
	return &Event{Type: EventTypePresence, State: state}
}

// NewPongEvent replies to a client ping
func NewPongEvent() *Event {
	return &Event{Type: EventTypePong}
}

// InboundKind is the closed set of recognized client event kinds.
// Anything else maps to KindUnrecognized and is tolerated as a no-op
// so future client versions don't break older servers.
type InboundKind int

const (
	KindUnrecognized InboundKind = iota
	KindPing
	KindTyping
)

// InboundEvent is a frame decoded from a client
type InboundEvent struct {
	Type EventType `json:"type"`
	// IsTyping defaults to true when the field is absent on a typing
	// event, matching client shorthand.
	IsTyping *bool `json:"is_typing,omitempty"`
}

// Kind maps the wire tag onto the closed inbound variant set
func (e *InboundEvent) Kind() InboundKind {
	switch e.Type {
	case EventTypePing:
		return KindPing
	case EventTypeTyping:
		return KindTyping
	default:
		return KindUnrecognized
	}
}

// TypingFlag resolves the is_typing value with its default
func (e *InboundEvent) TypingFlag() bool {
	if e.IsTyping == nil {
		return true
	}
	return *e.IsTyping
}

// DecodeInbound parses a raw client frame
func DecodeInbound(data []byte) (*InboundEvent, error) {
	var event InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
