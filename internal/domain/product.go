package domain

import "time"

// Product anchors a conversation to a specific listing. Catalog CRUD,
// search and ranking live in the catalog service; this backend only
// references products.
type Product struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	SellerID  uint64    `gorm:"column:seller_id;not null;index" json:"seller_id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Price     int64     `gorm:"column:price;not null" json:"price"`
	Currency  string    `gorm:"column:currency;size:3;default:USD" json:"currency"`
	IsActive  bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`

	// Relations
	Seller *SellerProfile `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Product) TableName() string {
	return "products"
}
