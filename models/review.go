package models

import "time"

type Review struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index;uniqueIndex:idx_review_user_product" json:"user_id"`
	ProductID          uint      `gorm:"not null;index;uniqueIndex:idx_review_user_product" json:"product_id"`
	Rating             int       `gorm:"not null;index" json:"rating"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	Comment            string    `gorm:"type:text;not null" json:"comment"`
	IsVerifiedPurchase bool      `gorm:"default:false" json:"is_verified_purchase"`
	HelpfulCount       int       `gorm:"default:0" json:"helpful_count"`
	IsActive           bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
