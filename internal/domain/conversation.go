package domain

import "time"

// Conversation is the durable 1:1 context between a buyer and a seller,
// optionally anchored to a product. The (buyer, seller, product) triple
// is unique: reopening the same context reuses the existing row.
type Conversation struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	BuyerID  uint64 `gorm:"column:buyer_id;not null;uniqueIndex:idx_conversation_context" json:"buyer_id"`
	SellerID uint64 `gorm:"column:seller_id;not null;uniqueIndex:idx_conversation_context" json:"seller_id"`
	// ProductID is 0 for a general conversation with the seller. The
	// sentinel keeps product-less rows inside the unique context index,
	// where a NULL would escape the uniqueness check.
	ProductID     uint64     `gorm:"column:product_id;not null;default:0;uniqueIndex:idx_conversation_context" json:"product_id,omitempty"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relations
	Buyer   *User          `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller  *SellerProfile `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Product *Product       `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Messages          []Message          `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	ParticipantStates []ParticipantState `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ParticipantIDs returns the two participant user IDs (buyer, seller owner).
// Seller must be preloaded.
func (c *Conversation) ParticipantIDs() (buyerUserID, sellerUserID uint64) {
	buyerUserID = c.BuyerID
	if c.Seller != nil {
		sellerUserID = c.Seller.UserID
	}
	return buyerUserID, sellerUserID
}

// OtherParticipantID returns the user on the opposite side of userID.
// Seller must be preloaded.
func (c *Conversation) OtherParticipantID(userID uint64) uint64 {
	buyerID, sellerUserID := c.ParticipantIDs()
	if userID == buyerID {
		return sellerUserID
	}
	return buyerID
}

// CreateConversationRequest opens (or reopens) a conversation with a seller
type CreateConversationRequest struct {
	SellerID  uint64  `json:"seller_id" binding:"required"`
	ProductID *uint64 `json:"product_id"`
}

// ConversationResponse is a conversation in API responses
type ConversationResponse struct {
	ID            uint64         `json:"id"`
	Buyer         *UserBrief     `json:"buyer,omitempty"`
	Seller        *SellerProfile `json:"seller,omitempty"`
	Product       *Product       `json:"product,omitempty"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	UnreadCount   int64          `json:"unread_count"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToResponse converts a Conversation to its API representation
func (c *Conversation) ToResponse(unreadCount int64) *ConversationResponse {
	resp := &ConversationResponse{
		ID:            c.ID,
		Seller:        c.Seller,
		Product:       c.Product,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   unreadCount,
		CreatedAt:     c.CreatedAt,
	}
	if c.Buyer != nil {
		resp.Buyer = c.Buyer.ToBrief()
	}
	return resp
}
