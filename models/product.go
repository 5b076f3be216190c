package models

import "time"

type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null;index" json:"name"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	Price         float64   `gorm:"type:decimal(10,2);not null;index" json:"price"`
	CategoryID    uint      `gorm:"not null;index" json:"category_id"`
	Brand         string    `gorm:"size:50;index" json:"brand"`
	Stock         int       `gorm:"not null;default:0;index" json:"stock"`
	Images        string    `gorm:"type:json" json:"images"`
	AverageRating float64   `gorm:"type:decimal(3,2);default:0" json:"average_rating"`
	RatingCount   int       `gorm:"default:0" json:"rating_count"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Reviews  []Review  `gorm:"foreignKey:ProductID" json:"reviews,omitempty"`
}
