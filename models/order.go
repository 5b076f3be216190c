package models

import "time"

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// ValidOrderStatuses is the allow-list for admin status updates.
var ValidOrderStatuses = map[string]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusShipped:    true,
	OrderStatusDelivered:  true,
	OrderStatusCancelled:  true,
	OrderStatusRefunded:   true,
}

// Order is an immutable purchase snapshot. After creation only Status and
// PaymentStatus change; items and totals never do.
type Order struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderNumber   string    `gorm:"size:40;uniqueIndex;not null" json:"order_number"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	TotalAmount   float64   `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status        string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentStatus string    `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	PaymentMethod string    `gorm:"size:30;not null" json:"payment_method"`
	OrderNotes    string    `gorm:"type:text" json:"order_notes,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	ShippingStreet  string `gorm:"size:255;not null" json:"shipping_street"`
	ShippingCity    string `gorm:"size:100;not null" json:"shipping_city"`
	ShippingState   string `gorm:"size:100;not null" json:"shipping_state"`
	ShippingZipCode string `gorm:"size:20;not null" json:"shipping_zip_code"`
	ShippingCountry string `gorm:"size:100;not null" json:"shipping_country"`

	User     *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// OrderItem freezes quantity and price at purchase time; later product price
// changes must not affect it.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"order_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Price     float64 `gorm:"type:decimal(10,2);not null" json:"price"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
