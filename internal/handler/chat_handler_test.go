package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/internal/migration"
	"github.com/FidelisKagashe26/MeetMe/internal/repository"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	"github.com/FidelisKagashe26/MeetMe/internal/ws"
	pkgjwt "github.com/FidelisKagashe26/MeetMe/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiTestEnv struct {
	db         *gorm.DB
	router     *gin.Engine
	jwtManager *pkgjwt.Manager

	buyer  domain.User
	owner  domain.User
	seller domain.SellerProfile
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	env := &apiTestEnv{
		db:         db,
		jwtManager: pkgjwt.NewManager("api-test-secret", 900),
		buyer:      domain.User{Username: "buyer"},
		owner:      domain.User{Username: "seller-owner"},
	}
	require.NoError(t, db.Create(&env.buyer).Error)
	require.NoError(t, db.Create(&env.owner).Error)
	env.seller = domain.SellerProfile{UserID: env.owner.ID, BusinessName: "Posta Phones"}
	require.NoError(t, db.Create(&env.seller).Error)

	hub := ws.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	notificationRepo := repository.NewNotificationRepository(db)
	chat := service.NewChatService(
		repository.NewConversationRepository(db),
		repository.NewMessageRepository(db),
		repository.NewParticipantStateRepository(db),
		notificationRepo,
		repository.NewSellerRepository(db),
		repository.NewProductRepository(db),
		hub,
		service.ChatOptions{TypingIncludesSender: true, NotificationPreviewLength: 120},
	)
	chatHandler := NewChatHandler(chat)
	notificationHandler := NewNotificationHandler(service.NewNotificationService(notificationRepo))

	router := gin.New()
	api := router.Group("/api/v1", middleware.JWTAuth(env.jwtManager))
	conversations := api.Group("/conversations")
	conversations.POST("", chatHandler.CreateConversation)
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.GET("/:id/messages", chatHandler.ListMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.POST("/:id/seen", chatHandler.MarkAllSeen)
	conversations.POST("/:id/typing", chatHandler.SetTyping)
	api.POST("/messages/:id/read", chatHandler.MarkMessageRead)
	notifications := api.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
	env.router = router
	return env
}

func (env *apiTestEnv) request(t *testing.T, user *domain.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := env.jwtManager.GenerateToken(user.ID, user.Username)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the envelope's data field into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func (env *apiTestEnv) openConversation(t *testing.T) uint64 {
	t.Helper()
	w := env.request(t, &env.buyer, http.MethodPost, "/api/v1/conversations",
		gin.H{"seller_id": env.seller.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conv domain.ConversationResponse
	decodeData(t, w, &conv)
	return conv.ID
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	env := newAPITestEnv(t)
	w := env.request(t, nil, http.MethodGet, "/api/v1/conversations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateConversationValidation(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.request(t, &env.buyer, http.MethodPost, "/api/v1/conversations", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "seller_id is required")

	w = env.request(t, &env.buyer, http.MethodPost, "/api/v1/conversations",
		gin.H{"seller_id": 424242})
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown seller")

	w = env.request(t, &env.owner, http.MethodPost, "/api/v1/conversations",
		gin.H{"seller_id": env.seller.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "cannot open a conversation with yourself")
}

func TestSendAndFetchMessages(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID),
		gin.H{"text": "naomba punguzo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent domain.MessageResponse
	decodeData(t, w, &sent)
	assert.Equal(t, domain.MessageStatusSent, sent.Status)

	w = env.request(t, &env.owner, http.MethodGet,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []domain.MessageResponse
	decodeData(t, w, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "naomba punguzo", messages[0].Text)
}

func TestSendMessageValidation(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty text rejected")

	w = env.request(t, &env.buyer, http.MethodPost,
		"/api/v1/conversations/abc/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed id rejected")

	w = env.request(t, &env.buyer, http.MethodPost,
		"/api/v1/conversations/99999/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code, "missing conversation")
}

func TestOutsiderGetsForbiddenNotNotFound(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	outsider := domain.User{Username: "outsider"}
	require.NoError(t, env.db.Create(&outsider).Error)

	w := env.request(t, &outsider, http.MethodGet,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, &outsider, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkMessageReadEndpoint(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var sent domain.MessageResponse
	decodeData(t, w, &sent)

	w = env.request(t, &env.owner, http.MethodPost,
		fmt.Sprintf("/api/v1/messages/%d/read", sent.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var read domain.MessageResponse
	decodeData(t, w, &read)
	assert.Equal(t, domain.MessageStatusRead, read.Status)
	assert.True(t, read.IsRead)
}

func TestTypingEndpointRequiresExplicitFlag(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/typing", convID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "is_typing is required")

	w = env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/typing", convID), gin.H{"is_typing": true})
	require.Equal(t, http.StatusOK, w.Code)
	var state domain.ParticipantStateResponse
	decodeData(t, w, &state)
	assert.True(t, state.IsTyping)
	assert.Equal(t, env.buyer.ID, state.UserID)
}

func TestMarkAllSeenEndpoint(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	for _, text := range []string{"one", "two"} {
		w := env.request(t, &env.buyer, http.MethodPost,
			fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": text})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.request(t, &env.owner, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/seen", convID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, &env.owner, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conversations []domain.ConversationResponse
	decodeData(t, w, &conversations)
	require.Len(t, conversations, 1)
	assert.Zero(t, conversations[0].UnreadCount)
}

func TestConversationListOrderedByActivity(t *testing.T) {
	env := newAPITestEnv(t)
	first := env.openConversation(t)

	secondOwner := domain.User{Username: "second-owner"}
	require.NoError(t, env.db.Create(&secondOwner).Error)
	secondSeller := domain.SellerProfile{UserID: secondOwner.ID, BusinessName: "Mwenge Crafts"}
	require.NoError(t, env.db.Create(&secondSeller).Error)

	w := env.request(t, &env.buyer, http.MethodPost, "/api/v1/conversations",
		gin.H{"seller_id": secondSeller.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var second domain.ConversationResponse
	decodeData(t, w, &second)

	// Activity in the first conversation bumps it back to the top
	w = env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", first), gin.H{"text": "bump"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, &env.buyer, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conversations []domain.ConversationResponse
	decodeData(t, w, &conversations)
	require.Len(t, conversations, 2)
	assert.Equal(t, first, conversations[0].ID)
	assert.Equal(t, second.ID, conversations[1].ID)
}

func TestNotificationLifecycle(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": "habari"})
	require.Equal(t, http.StatusOK, w.Code)

	// The recipient sees one unread chat notification
	w = env.request(t, &env.owner, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.NotificationSummaryResponse
	decodeData(t, w, &summary)
	assert.EqualValues(t, 1, summary.TotalUnread)

	w = env.request(t, &env.owner, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.NotificationResponse
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationTypeChatMessage, list[0].Type)
	assert.Equal(t, "habari", list[0].Body)

	// The sender has none
	w = env.request(t, &env.buyer, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &summary)
	assert.Zero(t, summary.TotalUnread)

	// Mark it read; the count drops
	w = env.request(t, &env.owner, http.MethodPost,
		fmt.Sprintf("/api/v1/notifications/%d/read", list[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, &env.owner, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &summary)
	assert.Zero(t, summary.TotalUnread)
}

func TestNotificationOwnershipEnforced(t *testing.T) {
	env := newAPITestEnv(t)
	convID := env.openConversation(t)

	w := env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/conversations/%d/messages", convID), gin.H{"text": "habari"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, &env.owner, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.NotificationResponse
	decodeData(t, w, &list)
	require.Len(t, list, 1)

	// The buyer cannot mark the owner's notification as read
	w = env.request(t, &env.buyer, http.MethodPost,
		fmt.Sprintf("/api/v1/notifications/%d/read", list[0].ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
