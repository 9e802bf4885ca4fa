package domain

import "time"

// SellerProfile is the selling identity owned by exactly one user.
// A conversation's seller side resolves to a participant through
// SellerProfile.UserID.
type SellerProfile struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	UserID       uint64    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	BusinessName string    `gorm:"column:business_name;size:255;not null" json:"business_name"`
	PhoneNumber  string    `gorm:"column:phone_number;size:20" json:"phone_number,omitempty"`
	IsVerified   bool      `gorm:"column:is_verified;default:false" json:"is_verified"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (SellerProfile) TableName() string {
	return "seller_profiles"
}
