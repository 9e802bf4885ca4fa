package domain

import "time"

// MessageStatus is the delivery state of a chat message.
// Transitions only move forward: sent -> delivered -> read.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// rank orders statuses for the forward-only check
func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 0
	case MessageStatusDelivered:
		return 1
	case MessageStatusRead:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving to next keeps the status
// monotonic. Equal status is allowed (idempotent re-apply).
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	return next.rank() >= s.rank() && next.rank() >= 0
}

// Message is one chat message inside a conversation. Messages are
// cascade-deleted with their conversation and ordered by created_at.
type Message struct {
	ID             uint64        `gorm:"primaryKey" json:"id"`
	ConversationID uint64        `gorm:"column:conversation_id;not null;index" json:"conversation_id"`
	SenderID       uint64        `gorm:"column:sender_id;not null;index" json:"sender_id"`
	Text           string        `gorm:"column:text;type:text;not null" json:"text"`
	Status         MessageStatus `gorm:"column:status;size:20;default:sent" json:"status"`
	// IsRead mirrors Status == read; kept in lockstep for clients that
	// predate the status field.
	IsRead    bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	// Relations
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// CreateMessageRequest sends a message into a conversation
type CreateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// MessageResponse is a message in API and WebSocket payloads
type MessageResponse struct {
	ID             uint64        `json:"id"`
	ConversationID uint64        `json:"conversation_id"`
	SenderID       uint64        `json:"sender_id"`
	Sender         *UserBrief    `json:"sender,omitempty"`
	Text           string        `json:"text"`
	Status         MessageStatus `json:"status"`
	IsRead         bool          `json:"is_read"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ToResponse converts a Message to its API representation
func (m *Message) ToResponse() *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Status:         m.Status,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sender != nil {
		resp.Sender = m.Sender.ToBrief()
	}
	return resp
}
