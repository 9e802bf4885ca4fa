package repository

import (
	"errors"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// NotificationRepository notification data access interface
type NotificationRepository interface {
	Create(n *domain.Notification) error
	FindByID(id uint64) (*domain.Notification, error)
	ListForUser(userID uint64, page, limit int) ([]*domain.Notification, int64, error)
	CountUnread(userID uint64) (int64, error)
	MarkRead(id uint64) error
	MarkAllRead(userID uint64) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create persists one notification row
func (r *notificationRepository) Create(n *domain.Notification) error {
	return r.db.Create(n).Error
}

// FindByID finds a notification by ID
func (r *notificationRepository) FindByID(id uint64) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.First(&n, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// ListForUser returns notifications newest first
func (r *notificationRepository) ListForUser(userID uint64, page, limit int) ([]*domain.Notification, int64, error) {
	var total int64
	if err := r.db.Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []*domain.Notification
	offset := (page - 1) * limit
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

// CountUnread returns the user's unread notification count
func (r *notificationRepository) CountUnread(userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification as read
func (r *notificationRepository) MarkRead(id uint64) error {
	return r.db.Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllRead marks all the user's notifications as read
func (r *notificationRepository) MarkAllRead(userID uint64) (int64, error) {
	result := r.db.Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
