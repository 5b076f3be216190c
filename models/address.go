package models

import "time"

type Address struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Type          string    `gorm:"size:10;default:'home'" json:"type"`
	IsDefault     bool      `gorm:"default:false;index" json:"is_default"`
	RecipientName string    `gorm:"size:100;not null" json:"recipient_name"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Street        string    `gorm:"size:255;not null" json:"street"`
	City          string    `gorm:"size:100;not null" json:"city"`
	State         string    `gorm:"size:100;not null" json:"state"`
	ZipCode       string    `gorm:"size:20;not null" json:"zip_code"`
	Country       string    `gorm:"size:100;not null" json:"country"`
	Landmark      string    `gorm:"size:255" json:"landmark,omitempty"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
