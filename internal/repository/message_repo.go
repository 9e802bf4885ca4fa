package repository

import (
	"errors"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface
type MessageRepository interface {
	Create(msg *domain.Message) error
	FindByID(id uint64) (*domain.Message, error)
	ListByConversation(conversationID uint64, page, limit int) ([]*domain.Message, int64, error)
	MarkRead(id uint64) error
	MarkAllRead(conversationID, exceptSenderID uint64) (int64, error)
	CountUnreadForUser(conversationID, userID uint64) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create persists a new message
func (r *messageRepository) Create(msg *domain.Message) error {
	return r.db.Create(msg).Error
}

// FindByID finds a message by ID with its sender
func (r *messageRepository) FindByID(id uint64) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Preload("Sender").First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListByConversation returns messages ordered by creation time ascending.
// Creation order is the only externally visible order.
func (r *messageRepository) ListByConversation(conversationID uint64, page, limit int) ([]*domain.Message, int64, error) {
	var total int64
	if err := r.db.Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []*domain.Message
	offset := (page - 1) * limit
	err := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, total, err
}

// MarkRead flips one message to read. The WHERE guard keeps the status
// machine forward-only even under concurrent calls.
func (r *messageRepository) MarkRead(id uint64) error {
	return r.db.Model(&domain.Message{}).
		Where("id = ? AND status <> ?", id, domain.MessageStatusRead).
		Updates(map[string]interface{}{
			"status":  domain.MessageStatusRead,
			"is_read": true,
		}).Error
}

// MarkAllRead flips every unread message in the conversation not sent
// by exceptSenderID. Returns the number of rows transitioned.
func (r *messageRepository) MarkAllRead(conversationID, exceptSenderID uint64) (int64, error) {
	result := r.db.Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, exceptSenderID, false).
		Updates(map[string]interface{}{
			"status":  domain.MessageStatusRead,
			"is_read": true,
		})
	return result.RowsAffected, result.Error
}

// CountUnreadForUser counts messages the user has not read yet
func (r *messageRepository) CountUnreadForUser(conversationID, userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		Count(&count).Error
	return count, err
}
