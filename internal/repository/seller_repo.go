package repository

import (
	"errors"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// SellerRepository seller profile lookups needed to resolve the
// seller side of a conversation to its owning user
type SellerRepository interface {
	FindByID(id uint64) (*domain.SellerProfile, error)
}

type sellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository creates a new SellerRepository
func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

// FindByID finds a seller profile with its owning user
func (r *sellerRepository) FindByID(id uint64) (*domain.SellerProfile, error) {
	var seller domain.SellerProfile
	err := r.db.Preload("User").First(&seller, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &seller, nil
}
