package migration

import (
	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for every chat table. Order matters:
// referenced tables first so the FK constraints resolve.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.SellerProfile{},
		&domain.Product{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.ParticipantState{},
		&domain.Notification{},
	)
}
