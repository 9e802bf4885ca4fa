package repository

import (
	"errors"
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParticipantStateRepository typing/seen state access interface.
// All writes are single-statement upserts keyed on
// (conversation_id, user_id), so concurrent REST and WebSocket writers
// for the same pair serialize on the row instead of losing updates.
type ParticipantStateRepository interface {
	EnsureExists(conversationID, userID uint64) error
	Find(conversationID, userID uint64) (*domain.ParticipantState, error)
	SetTyping(conversationID, userID uint64, isTyping bool, at time.Time) error
	MarkSeen(conversationID, userID uint64, at time.Time) error
}

type participantStateRepository struct {
	db *gorm.DB
}

// NewParticipantStateRepository creates a new ParticipantStateRepository
func NewParticipantStateRepository(db *gorm.DB) ParticipantStateRepository {
	return &participantStateRepository{db: db}
}

var stateConflictKey = []clause.Column{
	{Name: "conversation_id"},
	{Name: "user_id"},
}

// EnsureExists lazily creates the state row, keeping existing values
func (r *participantStateRepository) EnsureExists(conversationID, userID uint64) error {
	state := &domain.ParticipantState{
		ConversationID: conversationID,
		UserID:         userID,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   stateConflictKey,
		DoNothing: true,
	}).Create(state).Error
}

// Find returns the state row, nil when the user never interacted
func (r *participantStateRepository) Find(conversationID, userID uint64) (*domain.ParticipantState, error) {
	var state domain.ParticipantState
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// SetTyping is a last-write-wins upsert of the typing flag
func (r *participantStateRepository) SetTyping(conversationID, userID uint64, isTyping bool, at time.Time) error {
	state := &domain.ParticipantState{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
		LastTypingAt:   &at,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   stateConflictKey,
		DoUpdates: clause.AssignmentColumns([]string{"is_typing", "last_typing_at", "updated_at"}),
	}).Create(state).Error
}

// MarkSeen bumps seen/read timestamps and clears the typing flag.
// Safe to call redundantly; timestamps only move to the given time.
func (r *participantStateRepository) MarkSeen(conversationID, userID uint64, at time.Time) error {
	state := &domain.ParticipantState{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       false,
		LastSeenAt:     &at,
		LastReadAt:     &at,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   stateConflictKey,
		DoUpdates: clause.AssignmentColumns([]string{"is_typing", "last_seen_at", "last_read_at", "updated_at"}),
	}).Create(state).Error
}
