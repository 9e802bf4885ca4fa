package handler

import (
	"net/http"
	"strconv"

	"github.com/FidelisKagashe26/MeetMe/internal/common"
	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	pkglogger "github.com/FidelisKagashe26/MeetMe/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ChatHandler handles conversation and message HTTP requests
type ChatHandler struct {
	service service.ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// CreateConversation handles POST /conversations
// @Summary Open (or reuse) a conversation with a seller
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body domain.CreateConversationRequest true "conversation context"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Security BearerAuth
// @Router /conversations [post]
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.service.GetOrCreateConversation(userID, &req)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, result, nil)
}

// ListConversations handles GET /conversations
// @Summary List my conversations, most recently active first
// @Tags conversations
// @Produce json
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationResponse}
// @Security BearerAuth
// @Router /conversations [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := pageParams(c)

	conversations, meta, err := h.service.ListConversations(userID, page, limit)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, conversations, meta)
}

// GetConversation handles GET /conversations/:id
// @Summary Fetch one conversation
// @Tags conversations
// @Produce json
// @Param id path int true "conversation id"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Security BearerAuth
// @Router /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.GetConversation(conversationID, userID)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, result, nil)
}

// ListMessages handles GET /conversations/:id/messages
// @Summary Conversation history, oldest first
// @Tags messages
// @Produce json
// @Param id path int true "conversation id"
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} common.APIResponse{data=[]domain.MessageResponse}
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c)

	messages, meta, err := h.service.ListMessages(conversationID, userID, page, limit)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, messages, meta)
}

// SendMessage handles POST /conversations/:id/messages
// @Summary Send a chat message
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "conversation id"
// @Param request body domain.CreateMessageRequest true "message body"
// @Success 200 {object} common.APIResponse{data=domain.MessageResponse}
// @Security BearerAuth
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req domain.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.service.SendMessage(conversationID, userID, req.Text)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	reqLogger := pkglogger.WithRequestID(middleware.GetRequestID(c))
	reqLogger.Info().
		Uint64("conversation_id", conversationID).
		Uint64("message_id", result.ID).
		Str("username", middleware.GetUsername(c)).
		Msg("message sent")

	common.SuccessResponse(c, result, nil)
}

// MarkAllSeen handles POST /conversations/:id/seen
// @Summary Mark every unread message from the other participant as read
// @Tags messages
// @Produce json
// @Param id path int true "conversation id"
// @Success 200 {object} common.APIResponse{data=domain.ParticipantStateResponse}
// @Security BearerAuth
// @Router /conversations/{id}/seen [post]
func (h *ChatHandler) MarkAllSeen(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	state, err := h.service.MarkAllSeen(conversationID, userID)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, state, nil)
}

// SetTyping handles POST /conversations/:id/typing
// @Summary Update my typing indicator
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "conversation id"
// @Param request body domain.TypingRequest true "typing flag"
// @Success 200 {object} common.APIResponse{data=domain.ParticipantStateResponse}
// @Security BearerAuth
// @Router /conversations/{id}/typing [post]
func (h *ChatHandler) SetTyping(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req domain.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	state, err := h.service.SetTyping(conversationID, userID, *req.IsTyping)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, state, nil)
}

// MarkMessageRead handles POST /messages/:id/read
// @Summary Mark one message as read
// @Tags messages
// @Produce json
// @Param id path int true "message id"
// @Success 200 {object} common.APIResponse{data=domain.MessageResponse}
// @Security BearerAuth
// @Router /messages/{id}/read [post]
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.MarkMessageRead(messageID, userID)
	if err != nil {
		common.ServiceErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, result, nil)
}

// pathID parses a positive integer path parameter, responding 400 on
// malformed input
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid "+name+" parameter", err)
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}
