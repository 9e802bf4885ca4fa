package service

import (
	"github.com/FidelisKagashe26/MeetMe/internal/common"
	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"github.com/FidelisKagashe26/MeetMe/internal/repository"
)

// NotificationService read-side management of the notifications the
// chat core writes
type NotificationService interface {
	GetList(userID uint64, page, limit int) ([]*domain.NotificationResponse, *common.Meta, error)
	GetUnreadCount(userID uint64) (*domain.NotificationSummaryResponse, error)
	MarkRead(userID, notificationID uint64) error
	MarkAllRead(userID uint64) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// GetList returns paginated notifications for a user
func (s *notificationService) GetList(userID uint64, page, limit int) ([]*domain.NotificationResponse, *common.Meta, error) {
	page, limit = normalizePage(page, limit)

	notifications, total, err := s.repo.ListForUser(userID, page, limit)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]*domain.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = n.ToResponse()
	}
	return responses, &common.Meta{Page: page, Limit: limit, Total: total}, nil
}

// GetUnreadCount returns the unread notification count
func (s *notificationService) GetUnreadCount(userID uint64) (*domain.NotificationSummaryResponse, error) {
	count, err := s.repo.CountUnread(userID)
	if err != nil {
		return nil, err
	}
	return &domain.NotificationSummaryResponse{TotalUnread: count}, nil
}

// MarkRead marks one notification as read after an ownership check
func (s *notificationService) MarkRead(userID, notificationID uint64) error {
	n, err := s.repo.FindByID(notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return common.ErrNotFound
	}
	if n.UserID != userID {
		return common.ErrForbidden
	}
	return s.repo.MarkRead(notificationID)
}

// MarkAllRead marks all the user's notifications as read
func (s *notificationService) MarkAllRead(userID uint64) (int64, error) {
	return s.repo.MarkAllRead(userID)
}
