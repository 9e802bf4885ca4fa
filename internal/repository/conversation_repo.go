package repository

import (
	"errors"
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	Create(conv *domain.Conversation) error
	FindByID(id uint64) (*domain.Conversation, error)
	FindByContext(buyerID, sellerID, productID uint64) (*domain.Conversation, error)
	ListForUser(userID uint64, page, limit int) ([]*domain.Conversation, int64, error)
	IsParticipant(conversationID, userID uint64) (bool, error)
	UpdateLastMessageAt(conversationID uint64, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create persists a new conversation
func (r *conversationRepository) Create(conv *domain.Conversation) error {
	return r.db.Create(conv).Error
}

// FindByID loads a conversation with both participants and the product
func (r *conversationRepository) FindByID(id uint64) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.
		Preload("Buyer").
		Preload("Seller").
		Preload("Seller.User").
		Preload("Product").
		First(&conv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// FindByContext looks up the conversation for a (buyer, seller, product)
// triple, productID 0 meaning no product anchor. Returns nil when the
// context has never been opened.
func (r *conversationRepository) FindByContext(buyerID, sellerID, productID uint64) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.
		Where("buyer_id = ? AND seller_id = ? AND product_id = ?", buyerID, sellerID, productID).
		Preload("Buyer").Preload("Seller").Preload("Product").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns conversations where the user is buyer or seller
// owner, most recently active first.
func (r *conversationRepository) ListForUser(userID uint64, page, limit int) ([]*domain.Conversation, int64, error) {
	membership := func() *gorm.DB {
		return r.db.Model(&domain.Conversation{}).
			Joins("JOIN seller_profiles ON seller_profiles.id = conversations.seller_id").
			Where("conversations.buyer_id = ? OR seller_profiles.user_id = ?", userID, userID)
	}

	var total int64
	if err := membership().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []*domain.Conversation
	offset := (page - 1) * limit
	err := membership().
		Preload("Buyer").
		Preload("Seller").
		Preload("Product").
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Offset(offset).Limit(limit).
		Find(&convs).Error
	return convs, total, err
}

// IsParticipant reports whether the user is the buyer or the seller's
// owning user of the conversation.
func (r *conversationRepository) IsParticipant(conversationID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Conversation{}).
		Joins("JOIN seller_profiles ON seller_profiles.id = conversations.seller_id").
		Where("conversations.id = ?", conversationID).
		Where("conversations.buyer_id = ? OR seller_profiles.user_id = ?", userID, userID).
		Count(&count).Error
	return count > 0, err
}

// UpdateLastMessageAt bumps the conversation's activity timestamp
func (r *conversationRepository) UpdateLastMessageAt(conversationID uint64, at time.Time) error {
	return r.db.Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}
