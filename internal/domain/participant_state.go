package domain

import "time"

// ParticipantState is the per-(conversation, user) typing and read
// tracking row. At most two rows exist per conversation, created
// lazily on first interaction and never deleted while the
// conversation lives.
type ParticipantState struct {
	ID             uint64     `gorm:"primaryKey" json:"id"`
	ConversationID uint64     `gorm:"column:conversation_id;not null;uniqueIndex:idx_participant_state" json:"conversation_id"`
	UserID         uint64     `gorm:"column:user_id;not null;uniqueIndex:idx_participant_state" json:"user_id"`
	IsTyping       bool       `gorm:"column:is_typing;default:false" json:"is_typing"`
	LastTypingAt   *time.Time `gorm:"column:last_typing_at" json:"last_typing_at,omitempty"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	LastReadAt     *time.Time `gorm:"column:last_read_at" json:"last_read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ParticipantState) TableName() string {
	return "conversation_participant_states"
}

// TypingRequest toggles the caller's typing indicator
type TypingRequest struct {
	IsTyping *bool `json:"is_typing" binding:"required"`
}

// ParticipantStateResponse is the presence snapshot broadcast to the group
type ParticipantStateResponse struct {
	ConversationID uint64     `json:"conversation_id"`
	UserID         uint64     `json:"user_id"`
	IsTyping       bool       `json:"is_typing"`
	LastTypingAt   *time.Time `json:"last_typing_at,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// ToResponse converts a ParticipantState to its broadcast snapshot
func (s *ParticipantState) ToResponse() *ParticipantStateResponse {
	return &ParticipantStateResponse{
		ConversationID: s.ConversationID,
		UserID:         s.UserID,
		IsTyping:       s.IsTyping,
		LastTypingAt:   s.LastTypingAt,
		LastSeenAt:     s.LastSeenAt,
		LastReadAt:     s.LastReadAt,
	}
}
