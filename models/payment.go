package models

import "time"

const (
	PayStatusPending    = "pending"
	PayStatusProcessing = "processing"
	PayStatusCompleted  = "completed"
	PayStatusFailed     = "failed"
	PayStatusRefunded   = "refunded"
)

// Payment links to one order. Refunds are additional rows with a negative
// amount and status "refunded". TransactionID carries the gateway intent or
// refund id and is unique, which makes webhook replays detectable.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderID         uint       `gorm:"not null;index" json:"order_id"`
	PaymentMethod   string     `gorm:"size:30;not null" json:"payment_method"`
	TransactionID   string     `gorm:"size:255;uniqueIndex" json:"transaction_id"`
	Amount          float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency        string     `gorm:"size:3;default:'usd'" json:"currency"`
	Status          string     `gorm:"size:20;default:'pending';index" json:"status"`
	GatewayResponse string     `gorm:"type:json" json:"-"`
	FailureReason   string     `gorm:"type:text" json:"failure_reason,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}
