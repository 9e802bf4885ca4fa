package domain

import (
	"encoding/json"
	"time"
)

// Notification types emitted by this backend
const (
	NotificationTypeChatMessage = "chat_message"
)

// Notification is a durable, recipient-addressed record created when a
// message is sent, so an offline participant learns about it out of
// band. Push/poll delivery is the notification service's concern; we
// only guarantee the write.
type Notification struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"column:user_id;not null;index" json:"user_id"`
	Type      string    `gorm:"column:type;size:50;not null" json:"type"`
	Title     string    `gorm:"column:title;size:255" json:"title"`
	Body      string    `gorm:"column:body;type:text" json:"body"`
	Data      string    `gorm:"column:data;type:json" json:"-"`
	IsRead    bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationData is the structured payload clients use for deep-linking
type NotificationData struct {
	ConversationID uint64 `json:"conversation_id"`
	MessageID      uint64 `json:"message_id"`
}

// SetData encodes the structured payload onto the row
func (n *Notification) SetData(data *NotificationData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	n.Data = string(raw)
	return nil
}

// DecodedData decodes the structured payload, nil when absent or invalid
func (n *Notification) DecodedData() *NotificationData {
	if n.Data == "" {
		return nil
	}
	var data NotificationData
	if err := json.Unmarshal([]byte(n.Data), &data); err != nil {
		return nil
	}
	return &data
}

// NotificationResponse is a notification in API responses
type NotificationResponse struct {
	ID        uint64            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      *NotificationData `json:"data,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToResponse converts a Notification to its API representation
func (n *Notification) ToResponse() *NotificationResponse {
	return &NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.DecodedData(),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// NotificationSummaryResponse is the unread count payload
type NotificationSummaryResponse struct {
	TotalUnread int64 `json:"total_unread"`
}
