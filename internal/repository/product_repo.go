package repository

import (
	"errors"

	"github.com/FidelisKagashe26/MeetMe/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository product lookups needed to anchor a conversation
type ProductRepository interface {
	FindByID(id uint64) (*domain.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// FindByID finds a product by ID
func (r *productRepository) FindByID(id uint64) (*domain.Product, error) {
	var product domain.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
