package models

import "time"

// Cart is one-per-user. TotalAmount and ItemCount are denormalized and are
// recomputed from the cart_items rows inside every mutating transaction.
type Cart struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at"`
	TotalAmount float64    `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	ItemCount   int        `gorm:"not null;default:0" json:"item_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
