package handler

import (
	"github.com/FidelisKagashe26/MeetMe/internal/common"
	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	service service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List handles GET /notifications
// @Summary List my notifications, newest first
// @Tags notifications
// @Produce json
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} common.APIResponse{data=[]domain.NotificationResponse}
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := pageParams(c)

	notifications, meta, err := h.service.GetList(userID, page, limit)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, notifications, meta)
}

// UnreadCount handles GET /notifications/unread-count
// @Summary My unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.NotificationSummaryResponse}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.GetUserID(c)

	summary, err := h.service.GetUnreadCount(userID)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, summary, nil)
}

// MarkRead handles POST /notifications/:id/read
// @Summary Mark one notification as read
// @Tags notifications
// @Produce json
// @Param id path int true "notification id"
// @Success 200 {object} common.APIResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.MarkRead(userID, notificationID); err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"marked": true}, nil)
}

// MarkAllRead handles POST /notifications/read-all
// @Summary Mark all my notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} common.APIResponse
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	updated, err := h.service.MarkAllRead(userID)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"updated": updated}, nil)
}
