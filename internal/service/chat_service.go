package service

import (
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/common"
	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"github.com/FidelisKagashe26/MeetMe/internal/repository"
	"github.com/FidelisKagashe26/MeetMe/internal/ws"
	pkglogger "github.com/FidelisKagashe26/MeetMe/pkg/logger"
)

// Broadcaster is the fan-out seam between the chat service and the
// WebSocket hub. Both the REST handlers and the duplex connections
// push their side effects through it.
type Broadcaster interface {
	Broadcast(group string, event *ws.Event)
	BroadcastExcept(group string, excludeUserID uint64, event *ws.Event)
}

// ChatService is the single write path for every chat state
// transition. The REST handlers and the WebSocket dispatcher both
// call it, so broadcast and notification side effects cannot drift
// between the two entry points.
type ChatService interface {
	GetOrCreateConversation(userID uint64, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error)
	ListConversations(userID uint64, page, limit int) ([]*domain.ConversationResponse, *common.Meta, error)
	GetConversation(conversationID, userID uint64) (*domain.ConversationResponse, error)
	ListMessages(conversationID, userID uint64, page, limit int) ([]*domain.MessageResponse, *common.Meta, error)
	SendMessage(conversationID, senderID uint64, text string) (*domain.MessageResponse, error)
	MarkMessageRead(messageID, userID uint64) (*domain.MessageResponse, error)
	MarkAllSeen(conversationID, userID uint64) (*domain.ParticipantStateResponse, error)
	SetTyping(conversationID, userID uint64, isTyping bool) (*domain.ParticipantStateResponse, error)
	IsParticipant(conversationID, userID uint64) (bool, error)
	MarkSeenOnConnect(conversationID, userID uint64) error
	ClearTypingOnDisconnect(conversationID, userID uint64)
}

// ChatOptions tunes chat behavior
type ChatOptions struct {
	// TypingIncludesSender delivers presence broadcasts back to the
	// originating user's own connections (keeps multi-tab clients in
	// sync). When false the sender's connections are skipped.
	TypingIncludesSender bool
	// NotificationPreviewLength bounds the message text copied onto
	// the offline notification.
	NotificationPreviewLength int
}

type chatService struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	stateRepo   repository.ParticipantStateRepository
	notifRepo   repository.NotificationRepository
	sellerRepo  repository.SellerRepository
	productRepo repository.ProductRepository
	broadcaster Broadcaster
	opts        ChatOptions
}

// NewChatService creates a new ChatService
func NewChatService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	stateRepo repository.ParticipantStateRepository,
	notifRepo repository.NotificationRepository,
	sellerRepo repository.SellerRepository,
	productRepo repository.ProductRepository,
	broadcaster Broadcaster,
	opts ChatOptions,
) ChatService {
	if opts.NotificationPreviewLength <= 0 {
		opts.NotificationPreviewLength = 120
	}
	return &chatService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		stateRepo:   stateRepo,
		notifRepo:   notifRepo,
		sellerRepo:  sellerRepo,
		productRepo: productRepo,
		broadcaster: broadcaster,
		opts:        opts,
	}
}

// GetOrCreateConversation reuses the conversation for a
// (buyer, seller, product) context or opens a new one.
func (s *chatService) GetOrCreateConversation(userID uint64, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error) {
	seller, err := s.sellerRepo.FindByID(req.SellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, common.ErrNotFound
	}
	if seller.UserID == userID {
		return nil, common.ErrSelfConversation
	}

	var productID uint64
	if req.ProductID != nil {
		productID = *req.ProductID
		product, err := s.productRepo.FindByID(productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, common.ErrNotFound
		}
		if product.SellerID != seller.ID {
			return nil, common.ErrInvalidInput
		}
	}

	conv, err := s.convRepo.FindByContext(userID, seller.ID, productID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = &domain.Conversation{
			BuyerID:   userID,
			SellerID:  seller.ID,
			ProductID: productID,
		}
		if err := s.convRepo.Create(conv); err != nil {
			// Lost a create race on the unique context index: the
			// other writer's row is the conversation to reuse.
			existing, findErr := s.convRepo.FindByContext(userID, seller.ID, productID)
			if findErr != nil || existing == nil {
				return nil, err
			}
			conv = existing
		}
		conv.Seller = seller
	}

	// Join both participants' states up front so the first typing or
	// seen upsert has nothing special to do.
	if err := s.stateRepo.EnsureExists(conv.ID, userID); err != nil {
		return nil, err
	}
	if err := s.stateRepo.EnsureExists(conv.ID, seller.UserID); err != nil {
		return nil, err
	}

	unread, err := s.msgRepo.CountUnreadForUser(conv.ID, userID)
	if err != nil {
		return nil, err
	}
	return conv.ToResponse(unread), nil
}

// ListConversations returns the user's conversations with unread counts
func (s *chatService) ListConversations(userID uint64, page, limit int) ([]*domain.ConversationResponse, *common.Meta, error) {
	page, limit = normalizePage(page, limit)

	convs, total, err := s.convRepo.ListForUser(userID, page, limit)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]*domain.ConversationResponse, len(convs))
	for i, conv := range convs {
		unread, err := s.msgRepo.CountUnreadForUser(conv.ID, userID)
		if err != nil {
			return nil, nil, err
		}
		responses[i] = conv.ToResponse(unread)
	}

	return responses, &common.Meta{Page: page, Limit: limit, Total: total}, nil
}

// GetConversation returns one conversation the user participates in
func (s *chatService) GetConversation(conversationID, userID uint64) (*domain.ConversationResponse, error) {
	conv, err := s.loadConversationForParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.msgRepo.CountUnreadForUser(conv.ID, userID)
	if err != nil {
		return nil, err
	}
	return conv.ToResponse(unread), nil
}

// ListMessages returns conversation history, oldest first
func (s *chatService) ListMessages(conversationID, userID uint64, page, limit int) ([]*domain.MessageResponse, *common.Meta, error) {
	page, limit = normalizePage(page, limit)

	if _, err := s.loadConversationForParticipant(conversationID, userID); err != nil {
		return nil, nil, err
	}

	messages, total, err := s.msgRepo.ListByConversation(conversationID, page, limit)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]*domain.MessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = msg.ToResponse()
	}
	return responses, &common.Meta{Page: page, Limit: limit, Total: total}, nil
}

// SendMessage persists a message and drives every side effect of the
// create transition: activity bump, sender state, offline
// notification and live fan-out.
func (s *chatService) SendMessage(conversationID, senderID uint64, text string) (*domain.MessageResponse, error) {
	if text == "" {
		return nil, common.ErrInvalidInput
	}

	conv, err := s.loadConversationForParticipant(conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		Status:         domain.MessageStatusSent,
		IsRead:         false,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, err
	}

	if err := s.convRepo.UpdateLastMessageAt(conv.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	// Sending implies the sender has seen the conversation and is no
	// longer typing.
	if err := s.stateRepo.MarkSeen(conv.ID, senderID, msg.CreatedAt); err != nil {
		return nil, err
	}

	s.attachSender(conv, msg)
	resp := msg.ToResponse()

	// A notification failure never rolls back or blocks the committed
	// message write; the recipient still gets the message on the next
	// conversation fetch.
	if err := s.notifyRecipient(conv, msg); err != nil {
		pkglogger.GetLogger().Warn().
			Err(err).
			Uint64("conversation_id", conv.ID).
			Uint64("message_id", msg.ID).
			Msg("chat message notification write failed")
	}

	s.broadcaster.Broadcast(ws.GroupKey(conv.ID), ws.NewMessageEvent(resp))

	return resp, nil
}

// MarkMessageRead transitions one message to read on behalf of the
// recipient. A sender marking their own message is a no-op returning
// the current state.
func (s *chatService) MarkMessageRead(messageID, userID uint64) (*domain.MessageResponse, error) {
	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, common.ErrMessageNotFound
	}

	conv, err := s.loadConversationForParticipant(msg.ConversationID, userID)
	if err != nil {
		return nil, err
	}

	if msg.SenderID == userID {
		return msg.ToResponse(), nil
	}

	if err := s.msgRepo.MarkRead(msg.ID); err != nil {
		return nil, err
	}
	msg.Status = domain.MessageStatusRead
	msg.IsRead = true

	if _, err := s.bumpSeenAndBroadcast(conv.ID, userID); err != nil {
		return nil, err
	}
	return msg.ToResponse(), nil
}

// MarkAllSeen clears the caller's unread backlog. Idempotent: with no
// unread messages it still bumps the caller's seen/read timestamps.
func (s *chatService) MarkAllSeen(conversationID, userID uint64) (*domain.ParticipantStateResponse, error) {
	conv, err := s.loadConversationForParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.msgRepo.MarkAllRead(conv.ID, userID); err != nil {
		return nil, err
	}

	return s.bumpSeenAndBroadcast(conv.ID, userID)
}

// SetTyping is a last-write-wins update of the caller's typing flag,
// broadcast to the conversation group.
func (s *chatService) SetTyping(conversationID, userID uint64, isTyping bool) (*domain.ParticipantStateResponse, error) {
	ok, err := s.convRepo.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.participantError(conversationID)
	}

	if err := s.stateRepo.SetTyping(conversationID, userID, isTyping, time.Now()); err != nil {
		return nil, err
	}

	state, err := s.stateRepo.Find(conversationID, userID)
	if err != nil {
		return nil, err
	}
	snapshot := state.ToResponse()

	group := ws.GroupKey(conversationID)
	if s.opts.TypingIncludesSender {
		s.broadcaster.Broadcast(group, ws.NewPresenceEvent(snapshot))
	} else {
		s.broadcaster.BroadcastExcept(group, userID, ws.NewPresenceEvent(snapshot))
	}

	return snapshot, nil
}

// IsParticipant reports whether the user may join the conversation
func (s *chatService) IsParticipant(conversationID, userID uint64) (bool, error) {
	return s.convRepo.IsParticipant(conversationID, userID)
}

// MarkSeenOnConnect records that the user opened the conversation
func (s *chatService) MarkSeenOnConnect(conversationID, userID uint64) error {
	return s.stateRepo.MarkSeen(conversationID, userID, time.Now())
}

// ClearTypingOnDisconnect forces the typing flag off when a
// connection goes away, so a vanished peer never appears to be typing
// forever. Errors are logged; the disconnect itself cannot fail.
func (s *chatService) ClearTypingOnDisconnect(conversationID, userID uint64) {
	if _, err := s.SetTyping(conversationID, userID, false); err != nil {
		pkglogger.GetLogger().Warn().
			Err(err).
			Uint64("conversation_id", conversationID).
			Uint64("user_id", userID).
			Msg("failed to clear typing flag on disconnect")
	}
}

// loadConversationForParticipant resolves the conversation and
// enforces membership. Not-found and forbidden stay distinct.
func (s *chatService) loadConversationForParticipant(conversationID, userID uint64) (*domain.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, common.ErrConversationNotFound
	}
	buyerID, sellerUserID := conv.ParticipantIDs()
	if userID != buyerID && userID != sellerUserID {
		return nil, common.ErrNotParticipant
	}
	return conv, nil
}

func (s *chatService) participantError(conversationID uint64) error {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return common.ErrConversationNotFound
	}
	return common.ErrNotParticipant
}

// bumpSeenAndBroadcast bumps seen/read, clears typing and pushes the
// fresh presence snapshot to the group.
func (s *chatService) bumpSeenAndBroadcast(conversationID, userID uint64) (*domain.ParticipantStateResponse, error) {
	if err := s.stateRepo.MarkSeen(conversationID, userID, time.Now()); err != nil {
		return nil, err
	}
	state, err := s.stateRepo.Find(conversationID, userID)
	if err != nil {
		return nil, err
	}
	snapshot := state.ToResponse()
	s.broadcaster.Broadcast(ws.GroupKey(conversationID), ws.NewPresenceEvent(snapshot))
	return snapshot, nil
}

// attachSender fills msg.Sender from the already-loaded conversation
func (s *chatService) attachSender(conv *domain.Conversation, msg *domain.Message) {
	if conv.Buyer != nil && conv.Buyer.ID == msg.SenderID {
		msg.Sender = conv.Buyer
	} else if conv.Seller != nil && conv.Seller.User != nil && conv.Seller.User.ID == msg.SenderID {
		msg.Sender = conv.Seller.User
	}
}

// notifyRecipient writes the durable notification for the participant
// on the other side of the message.
func (s *chatService) notifyRecipient(conv *domain.Conversation, msg *domain.Message) error {
	notification := &domain.Notification{
		UserID: conv.OtherParticipantID(msg.SenderID),
		Type:   domain.NotificationTypeChatMessage,
		Title:  "New message",
		Body:   truncateRunes(msg.Text, s.opts.NotificationPreviewLength),
	}
	if err := notification.SetData(&domain.NotificationData{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
	}); err != nil {
		return err
	}
	return s.notifRepo.Create(notification)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
