package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	"github.com/FidelisKagashe26/MeetMe/internal/ws"
	pkgjwt "github.com/FidelisKagashe26/MeetMe/pkg/jwt"
	pkglogger "github.com/FidelisKagashe26/MeetMe/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Application close codes, distinct so clients can tell
// retry-with-login apart from "wrong room"
const (
	CloseBadRequest   = 4400 // malformed conversation id
	CloseUnauthorized = 4401 // no or invalid identity
	CloseForbidden    = 4403 // authenticated but not a participant
)

// authTimeout bounds the token validation on connect; past it the
// connection is treated as unauthenticated
const authTimeout = 3 * time.Second

// WSHandler handles chat WebSocket connections
type WSHandler struct {
	hub            *ws.Hub
	chat           service.ChatService
	jwtManager     *pkgjwt.Manager
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, chat service.ChatService, jwtManager *pkgjwt.Manager, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		chat:           chat,
		jwtManager:     jwtManager,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Same-origin requests don't have Origin header
	}

	// If no allowed origins configured, allow all (development mode)
	if len(h.allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	return false
}

// Connect handles GET /ws/chat/:conversation_id, the WebSocket upgrade
// @Summary Join a conversation's real-time event stream
// @Tags chat
// @Param conversation_id path int true "conversation id"
// @Param token query string false "access token (preferred over the Authorization header)"
// @Router /ws/chat/{conversation_id} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	// Resolve identity before upgrading; rejection still happens over
	// the socket so the close code can be specific.
	userID := h.resolveIdentity(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if userID == 0 {
		closeWith(conn, CloseUnauthorized, "authentication required")
		return
	}

	conversationID, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
	if err != nil || conversationID == 0 {
		closeWith(conn, CloseBadRequest, "invalid conversation id")
		return
	}

	isParticipant, err := h.chat.IsParticipant(conversationID, userID)
	if err != nil || !isParticipant {
		closeWith(conn, CloseForbidden, "not a participant")
		return
	}

	client := ws.NewClient(h.hub, conn, conversationID, userID, h)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log := pkglogger.WithRequestID(middleware.GetRequestID(c))
	log.Info().
		Uint64("conversation_id", conversationID).
		Uint64("user_id", userID).
		Msg("chat connection opened")

	// Opening the conversation clears the user's unread backlog state
	if err := h.chat.MarkSeenOnConnect(conversationID, userID); err != nil {
		log.Warn().
			Err(err).
			Uint64("conversation_id", conversationID).
			Uint64("user_id", userID).
			Msg("mark seen on connect failed")
	}

	// Diagnostic ack, not required for correctness
	client.Send(ws.NewConnectionEvent(conversationID, userID))
}

// HandleTyping implements ws.EventHandler: typing frames go through
// the same service path as the REST typing endpoint
func (h *WSHandler) HandleTyping(conversationID, userID uint64, isTyping bool) {
	if _, err := h.chat.SetTyping(conversationID, userID, isTyping); err != nil {
		pkglogger.GetLogger().Warn().
			Err(err).
			Uint64("conversation_id", conversationID).
			Uint64("user_id", userID).
			Msg("typing update failed")
	}
}

// HandleDisconnect implements ws.EventHandler
func (h *WSHandler) HandleDisconnect(conversationID, userID uint64) {
	h.chat.ClearTypingOnDisconnect(conversationID, userID)
}

// resolveIdentity extracts and validates the bearer token. The query
// parameter wins over the Authorization header; an empty value counts
// as no token. Any validation failure yields an anonymous identity;
// rejection is deferred to the authorization step so the close code
// reflects the real reason.
func (h *WSHandler) resolveIdentity(c *gin.Context) uint64 {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			raw = strings.TrimSpace(authHeader[len("bearer "):])
		}
	}
	if raw == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()

	type result struct {
		claims *pkgjwt.Claims
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		claims, err := h.jwtManager.VerifyToken(raw)
		ch <- result{claims, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			pkglogger.GetLogger().Debug().Err(res.err).Msg("websocket token rejected")
			return 0
		}
		return res.claims.UserID
	case <-ctx.Done():
		pkglogger.GetLogger().Warn().Msg("websocket token validation timed out")
		return 0
	}
}

// closeWith sends a close frame with an application code and drops
// the connection
func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline) //nolint:errcheck
	conn.Close()
}
