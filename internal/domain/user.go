package domain

import "time"

// User represents an account referenced by conversations and messages.
// Credential issuance (register/login/refresh) is handled by the auth
// service in front of this backend; we only consume its tokens.
type User struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"column:username;size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"column:email;size:255" json:"email,omitempty"`
	Password  string    `gorm:"column:password;size:255" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserBrief is the compact user shape embedded in chat payloads
type UserBrief struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// ToBrief converts a User to its embedded representation
func (u *User) ToBrief() *UserBrief {
	return &UserBrief{ID: u.ID, Username: u.Username}
}
