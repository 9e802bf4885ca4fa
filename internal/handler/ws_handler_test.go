package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"github.com/FidelisKagashe26/MeetMe/internal/migration"
	"github.com/FidelisKagashe26/MeetMe/internal/repository"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	"github.com/FidelisKagashe26/MeetMe/internal/ws"
	pkgjwt "github.com/FidelisKagashe26/MeetMe/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type wsTestEnv struct {
	db         *gorm.DB
	server     *httptest.Server
	jwtManager *pkgjwt.Manager
	chat       service.ChatService

	buyer          domain.User
	owner          domain.User
	other          domain.User
	conversationID uint64
}

func newWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	env := &wsTestEnv{
		db:         db,
		jwtManager: pkgjwt.NewManager("ws-test-secret", 900),
		buyer:      domain.User{Username: "buyer"},
		owner:      domain.User{Username: "seller-owner"},
		other:      domain.User{Username: "bystander"},
	}
	require.NoError(t, db.Create(&env.buyer).Error)
	require.NoError(t, db.Create(&env.owner).Error)
	require.NoError(t, db.Create(&env.other).Error)

	seller := domain.SellerProfile{UserID: env.owner.ID, BusinessName: "Kariakoo Spares"}
	require.NoError(t, db.Create(&seller).Error)

	hub := ws.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	env.chat = service.NewChatService(
		repository.NewConversationRepository(db),
		repository.NewMessageRepository(db),
		repository.NewParticipantStateRepository(db),
		repository.NewNotificationRepository(db),
		repository.NewSellerRepository(db),
		repository.NewProductRepository(db),
		hub,
		service.ChatOptions{TypingIncludesSender: true, NotificationPreviewLength: 120},
	)

	conv, err := env.chat.GetOrCreateConversation(env.buyer.ID, &domain.CreateConversationRequest{SellerID: seller.ID})
	require.NoError(t, err)
	env.conversationID = conv.ID

	wsHandler := NewWSHandler(hub, env.chat, env.jwtManager, nil)
	router := gin.New()
	router.GET("/ws/chat/:conversation_id", wsHandler.Connect)

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (env *wsTestEnv) token(t *testing.T, user domain.User) string {
	t.Helper()
	token, err := env.jwtManager.GenerateToken(user.ID, user.Username)
	require.NoError(t, err)
	return token
}

func (env *wsTestEnv) wsURL(path string) string {
	return strings.Replace(env.server.URL, "http", "ws", 1) + path
}

func (env *wsTestEnv) dial(t *testing.T, path string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL(path), header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// dialAs opens an authenticated connection to the env's conversation
func (env *wsTestEnv) dialAs(t *testing.T, user domain.User) *websocket.Conn {
	t.Helper()
	path := fmt.Sprintf("/ws/chat/%d?token=%s", env.conversationID, env.token(t, user))
	return env.dial(t, path, nil)
}

// expectClose asserts the server shuts the connection with the given
// application close code before sending any frame
func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close frame, got: %v", err)
	assert.Equal(t, code, closeErr.Code)
}

// readEventOfType reads frames until one with the wanted type arrives
func readEventOfType(t *testing.T, conn *websocket.Conn, wanted ws.EventType) *ws.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q event", wanted)
		var event ws.Event
		require.NoError(t, json.Unmarshal(data, &event))
		if event.Type == wanted {
			return &event
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func TestConnectWithoutTokenRejected(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t, fmt.Sprintf("/ws/chat/%d", env.conversationID), nil)
	expectClose(t, conn, CloseUnauthorized)
}

func TestConnectWithInvalidTokenRejected(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t, fmt.Sprintf("/ws/chat/%d?token=not-a-token", env.conversationID), nil)
	expectClose(t, conn, CloseUnauthorized)
}

func TestConnectWithExpiredTokenRejected(t *testing.T) {
	env := newWSTestEnv(t)
	expired := pkgjwt.NewManager("ws-test-secret", -60)
	token, err := expired.GenerateToken(env.buyer.ID, env.buyer.Username)
	require.NoError(t, err)

	conn := env.dial(t, fmt.Sprintf("/ws/chat/%d?token=%s", env.conversationID, token), nil)
	expectClose(t, conn, CloseUnauthorized)
}

func TestConnectWithMalformedConversationIDRejected(t *testing.T) {
	env := newWSTestEnv(t)
	for _, raw := range []string{"abc", "0", "-3"} {
		conn := env.dial(t, fmt.Sprintf("/ws/chat/%s?token=%s", raw, env.token(t, env.buyer)), nil)
		expectClose(t, conn, CloseBadRequest)
	}
}

func TestConnectAsNonParticipantRejected(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dialAs(t, env.other)
	expectClose(t, conn, CloseForbidden)
}

func TestConnectToMissingConversationRejected(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t, fmt.Sprintf("/ws/chat/%d?token=%s", uint64(99999), env.token(t, env.buyer)), nil)
	expectClose(t, conn, CloseForbidden)
}

func TestConnectAckAndSeenOnOpen(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dialAs(t, env.buyer)

	ack := readEventOfType(t, conn, ws.EventTypeConnection)
	assert.Equal(t, env.conversationID, ack.ConversationID)
	assert.Equal(t, env.buyer.ID, ack.UserID)

	require.Eventually(t, func() bool {
		var state domain.ParticipantState
		err := env.db.Where("conversation_id = ? AND user_id = ?", env.conversationID, env.buyer.ID).
			First(&state).Error
		return err == nil && state.LastSeenAt != nil
	}, 2*time.Second, 10*time.Millisecond, "opening the conversation records a seen timestamp")
}

func TestQueryTokenWinsOverHeader(t *testing.T) {
	env := newWSTestEnv(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer garbage")
	path := fmt.Sprintf("/ws/chat/%d?token=%s", env.conversationID, env.token(t, env.buyer))
	conn := env.dial(t, path, header)

	ack := readEventOfType(t, conn, ws.EventTypeConnection)
	assert.Equal(t, env.buyer.ID, ack.UserID)
}

func TestHeaderTokenAcceptedWhenQueryAbsent(t *testing.T) {
	env := newWSTestEnv(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.token(t, env.owner))
	conn := env.dial(t, fmt.Sprintf("/ws/chat/%d", env.conversationID), header)

	ack := readEventOfType(t, conn, ws.EventTypeConnection)
	assert.Equal(t, env.owner.ID, ack.UserID)
}

func TestPingPong(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dialAs(t, env.buyer)
	readEventOfType(t, conn, ws.EventTypeConnection)

	sendEvent(t, conn, `{"type":"ping"}`)
	readEventOfType(t, conn, ws.EventTypePong)
}

func TestUnrecognizedAndMalformedFramesIgnored(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dialAs(t, env.buyer)
	readEventOfType(t, conn, ws.EventTypeConnection)

	sendEvent(t, conn, `{"type":"video_call"}`)
	sendEvent(t, conn, `{not json`)

	// The connection survives both and still answers pings
	sendEvent(t, conn, `{"type":"ping"}`)
	readEventOfType(t, conn, ws.EventTypePong)
}

func TestTypingReachesBothParticipants(t *testing.T) {
	env := newWSTestEnv(t)
	buyerConn := env.dialAs(t, env.buyer)
	ownerConn := env.dialAs(t, env.owner)
	readEventOfType(t, buyerConn, ws.EventTypeConnection)
	readEventOfType(t, ownerConn, ws.EventTypeConnection)

	sendEvent(t, buyerConn, `{"type":"typing","is_typing":true}`)

	for _, conn := range []*websocket.Conn{ownerConn, buyerConn} {
		event := readEventOfType(t, conn, ws.EventTypePresence)
		require.NotNil(t, event.State)
		assert.Equal(t, env.buyer.ID, event.State.UserID)
		assert.True(t, event.State.IsTyping)
	}
}

func TestTypingFlagDefaultsToTrue(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dialAs(t, env.buyer)
	readEventOfType(t, conn, ws.EventTypeConnection)

	sendEvent(t, conn, `{"type":"typing"}`)

	event := readEventOfType(t, conn, ws.EventTypePresence)
	require.NotNil(t, event.State)
	assert.True(t, event.State.IsTyping)
}

func TestDisconnectClearsTyping(t *testing.T) {
	env := newWSTestEnv(t)
	buyerConn := env.dialAs(t, env.buyer)
	ownerConn := env.dialAs(t, env.owner)
	readEventOfType(t, buyerConn, ws.EventTypeConnection)
	readEventOfType(t, ownerConn, ws.EventTypeConnection)

	sendEvent(t, buyerConn, `{"type":"typing","is_typing":true}`)
	event := readEventOfType(t, ownerConn, ws.EventTypePresence)
	require.True(t, event.State.IsTyping)

	require.NoError(t, buyerConn.Close())

	// The peer sees the typing flag drop without any further input
	cleared := readEventOfType(t, ownerConn, ws.EventTypePresence)
	assert.Equal(t, env.buyer.ID, cleared.State.UserID)
	assert.False(t, cleared.State.IsTyping)

	require.Eventually(t, func() bool {
		var state domain.ParticipantState
		err := env.db.Where("conversation_id = ? AND user_id = ?", env.conversationID, env.buyer.ID).
			First(&state).Error
		return err == nil && !state.IsTyping
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMessageSentOverServiceArrivesOnSocket(t *testing.T) {
	env := newWSTestEnv(t)
	ownerConn := env.dialAs(t, env.owner)
	readEventOfType(t, ownerConn, ws.EventTypeConnection)

	// The HTTP send endpoint goes through the same service call, so a
	// connected peer sees the message without polling
	msg, err := env.chat.SendMessage(env.conversationID, env.buyer.ID, "bei ya mwisho?")
	require.NoError(t, err)

	event := readEventOfType(t, ownerConn, ws.EventTypeMessage)
	require.NotNil(t, event.Message)
	assert.Equal(t, msg.ID, event.Message.ID)
	assert.Equal(t, "bei ya mwisho?", event.Message.Text)
	assert.Equal(t, domain.MessageStatusSent, event.Message.Status)
}
