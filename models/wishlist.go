package models

import "time"

type Wishlist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_user_product" json:"product_id"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
